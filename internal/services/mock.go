package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

// mockResponseDelay imitates remote round-trip latency so development
// against the local provider exercises timeout handling.
const mockResponseDelay = 300 * time.Millisecond

// MockProvider is the deterministic local provider. It answers every
// prompt kind from station-keyed templates, so the server runs fully
// offline.
type MockProvider struct {
	gen    *story.TemplateGenerator
	rng    *rand.Rand
	delay  time.Duration
	logger *slog.Logger
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates the local provider. A nil rng gets a
// time-seeded source.
func NewMockProvider(rng *rand.Rand, logger *slog.Logger) *MockProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockProvider{
		gen:    story.NewTemplateGenerator(rng),
		rng:    rng,
		delay:  mockResponseDelay,
		logger: logger,
	}
}

// SetDelay overrides the artificial latency. Test use only.
func (p *MockProvider) SetDelay(d time.Duration) { p.delay = d }

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Available() bool { return true }

func (p *MockProvider) Generate(ctx context.Context, req GenerateRequest) (map[string]interface{}, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}

	switch {
	case strings.HasPrefix(req.SystemPrompt, evaluationPromptPrefix()):
		return p.evaluationResult(), nil
	case strings.HasPrefix(req.SystemPrompt, prompts.MultiplayerSystemPrompt[:40]):
		return p.multiplayerResult(req), nil
	case strings.HasPrefix(req.UserPrompt, "The player chose"):
		return p.continuationResult(req.Context), nil
	case strings.HasPrefix(req.UserPrompt, "Generate the metadata"):
		return p.metadataResult(req.Context)
	case strings.HasPrefix(req.UserPrompt, "Generate page"):
		return p.pageResult(req.Context), nil
	default:
		return p.gen.FirstPageResult(req.Context.StationName, req.Context.CharacterHealth, req.Context.CharacterSanity), nil
	}
}

func evaluationPromptPrefix() string {
	prefix := prompts.DefaultEvaluationSystemPrompt
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	return prefix
}

// evaluationResult scores every draft as passing. Template output is
// already well-formed, so the quality gate has nothing to reject.
func (p *MockProvider) evaluationResult() map[string]interface{} {
	return map[string]interface{}{
		"total_score":      85.0,
		"creativity":       17.0,
		"coherence":        17.0,
		"engagement":       17.0,
		"writing_quality":  17.0,
		"game_suitability": 17.0,
		"feedback":         "Template story, structurally sound.",
		"passed":           true,
	}
}

func (p *MockProvider) continuationResult(pctx PromptContext) map[string]interface{} {
	// The chosen option text is not threaded through PromptContext, so
	// the default branch of the continuation templates is used.
	resp := p.gen.ContinuePage("", pctx.StationName)
	return map[string]interface{}{
		"page_content": resp.PageContent,
		"options":      rawOptions(resp.Options),
		"is_last_page": resp.IsLastPage,
	}
}

func (p *MockProvider) metadataResult(pctx PromptContext) (map[string]interface{}, error) {
	meta := p.gen.Metadata(pctx.StationName, pctx.LineNumber)
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling template metadata: %w", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling template metadata: %w", err)
	}
	return result, nil
}

func (p *MockProvider) pageResult(pctx PromptContext) map[string]interface{} {
	theme := story.FallbackTheme(pctx.StationName, p.rng)
	page := p.gen.ThemedPage(pctx.StationName, theme, 2, 4)
	return map[string]interface{}{
		"content": page.Content,
		"options": rawOptions(page.Options),
	}
}

func (p *MockProvider) multiplayerResult(req GenerateRequest) map[string]interface{} {
	station := req.Context.StationName
	theme := story.FallbackTheme(station, p.rng)

	if strings.HasPrefix(req.UserPrompt, "Open a new cooperative adventure") {
		return map[string]interface{}{
			"story_outline": fmt.Sprintf("A %s incident traps the party inside %s station. They uncover its cause phase by phase, face it at the climax, and escape changed.", theme, station),
			"story_content": map[string]interface{}{
				"current_situation": fmt.Sprintf("The last train leaves %s station without you. The lights die one by one, and the exits no longer lead outside.", station),
				"special_event":     "A voice crackles over the dead PA system, calling someone by name.",
				"hint":              "Stay together and check the station office first.",
			},
			"phase_summary": fmt.Sprintf("The party is trapped in %s station as something begins.", station),
		}
	}

	return map[string]interface{}{
		"story_content": map[string]interface{}{
			"current_situation": fmt.Sprintf("Deeper into %s station, the %s tightens its grip. Every corridor looks the same, and something keeps pace just out of sight.", station, theme),
			"special_event":     "A maintenance door that was sealed a moment ago now stands open.",
			"hint":              "The open door is the only way forward.",
		},
		"phase_summary": "The party pushes deeper and finds an open maintenance door.",
		"effects":       []interface{}{},
		"is_ending":     false,
	}
}

func rawOptions(options []story.Option) []interface{} {
	raw := make([]interface{}, 0, len(options))
	for _, opt := range options {
		raw = append(raw, map[string]interface{}{
			"content":        opt.Content,
			"effect":         opt.Effect,
			"amount":         opt.Amount,
			"effect_preview": opt.EffectPreview,
		})
	}
	return raw
}
