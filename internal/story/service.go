// Package story runs the generation pipeline: prompt a provider,
// validate the draft structurally, grade it, and retry or fall back to
// deterministic templates until the caller gets a well-formed story.
package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/behindy-dev/storyserver/internal/services"
	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

// FallbackQualityScore is attached to template fallback stories in
// place of a real evaluation.
const FallbackQualityScore = 60.0

// FallbackFeedback marks a response served from templates after the
// quality gate could not be passed.
const FallbackFeedback = "fallback content served after generation retries were exhausted"

// Service generates single-player stories through the quality
// pipeline.
type Service struct {
	provider   services.Provider
	prompts    *prompts.Manager
	scorer     *Scorer
	gen        *story.TemplateGenerator
	rng        *rand.Rand
	maxRetries int
	stats      *Stats
	logger     *slog.Logger
}

// NewService wires the pipeline. A nil rng gets a time-seeded source.
func NewService(provider services.Provider, pm *prompts.Manager, scorer *Scorer, maxRetries int, stats *Stats, rng *rand.Rand, logger *slog.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		provider:   provider,
		prompts:    pm,
		scorer:     scorer,
		gen:        story.NewTemplateGenerator(rng),
		rng:        rng,
		maxRetries: maxRetries,
		stats:      stats,
		logger:     logger,
	}
}

// GenerateStory produces the first page of a new story. The first
// draft that validates and passes the quality gate wins; exhausted
// retries fall back to templates.
func (s *Service) GenerateStory(ctx context.Context, req story.GenerationRequest) (*story.GenerationResponse, error) {
	start := time.Now()
	s.stats.RecordRequest(req.StationName)

	pctx := services.PromptContext{
		StationName:     req.StationName,
		LineNumber:      req.LineNumber,
		CharacterHealth: req.CharacterHealth,
		CharacterSanity: req.CharacterSanity,
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		draft, err := s.provider.Generate(ctx, services.GenerateRequest{
			SystemPrompt: s.prompts.StoryPrompt(s.provider.Name()),
			UserPrompt:   prompts.GenerationPrompt(req),
			Context:      pctx,
		})
		if err != nil {
			if errors.Is(err, services.ErrAuth) {
				s.logger.Error("provider credentials rejected, serving fallback",
					"provider", s.provider.Name())
				break
			}
			s.logger.Warn("generation attempt failed",
				"attempt", attempt, "error", err)
			continue
		}

		if validation := story.ValidatePageResult(draft); !validation.IsValid {
			s.stats.RecordJSONFailure()
			s.logger.Warn("draft failed structural validation",
				"attempt", attempt, "errors", validation.Errors)
			continue
		}

		score, err := s.scorer.Evaluate(ctx, draft)
		if err != nil {
			if errors.Is(err, services.ErrAuth) {
				s.logger.Error("provider credentials rejected during evaluation, serving fallback",
					"provider", s.provider.Name())
				break
			}
			s.logger.Warn("draft evaluation failed",
				"attempt", attempt, "error", err)
			continue
		}
		if !score.Passed {
			s.logger.Info("draft rejected by quality gate",
				"attempt", attempt, "score", score.Total)
			continue
		}

		resp, err := s.buildResponse(draft, req)
		if err != nil {
			s.logger.Warn("accepted draft could not be decoded",
				"attempt", attempt, "error", err)
			continue
		}
		resp.QualityScore = score.Total
		resp.QualityFeedback = score.Feedback

		s.stats.RecordSuccess(score.Total, attempt-1, time.Since(start))
		return resp, nil
	}

	s.stats.RecordFallback(s.maxRetries, time.Since(start))
	return s.fallbackResponse(req), nil
}

// ContinueStory produces the next page after a player choice. It never
// fails: provider trouble falls back to a template continuation.
func (s *Service) ContinueStory(ctx context.Context, req story.ContinueRequest) *story.ContinueResponse {
	result, err := s.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: s.prompts.StoryPrompt(s.provider.Name()),
		UserPrompt:   prompts.ContinuationPrompt(req),
		Context: services.PromptContext{
			StationName:     req.StationName,
			LineNumber:      req.LineNumber,
			CharacterHealth: req.CharacterHealth,
			CharacterSanity: req.CharacterSanity,
		},
	})
	if err == nil {
		if resp, decodeErr := decodeContinueResult(result); decodeErr == nil {
			return resp
		} else {
			s.stats.RecordJSONFailure()
			s.logger.Warn("continuation draft rejected", "error", decodeErr)
		}
	} else {
		s.logger.Warn("continuation call failed", "error", err)
	}

	fallback := s.gen.ContinuePage(req.PreviousChoice, req.StationName)
	return &fallback
}

// buildResponse decodes a validated draft into the response type and
// enforces the theme restriction one last time.
func (s *Service) buildResponse(draft map[string]interface{}, req story.GenerationRequest) (*story.GenerationResponse, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling draft: %w", err)
	}
	var resp story.GenerationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}

	if !resp.Theme.IsAllowed() {
		replacement := story.FallbackTheme(req.StationName, s.rng)
		s.logger.Warn("provider proposed disallowed theme, replacing",
			"proposed", resp.Theme, "replacement", replacement)
		resp.Theme = replacement
	}
	if resp.StationName == "" {
		resp.StationName = req.StationName
	}
	if resp.LineNumber == 0 {
		resp.LineNumber = req.LineNumber
	}
	return &resp, nil
}

func (s *Service) fallbackResponse(req story.GenerationRequest) *story.GenerationResponse {
	draft := s.gen.FirstPageResult(req.StationName, req.CharacterHealth, req.CharacterSanity)

	resp, err := s.buildResponse(draft, req)
	if err != nil {
		// Template output always decodes; this path guards against
		// future template changes.
		theme := story.FallbackTheme(req.StationName, s.rng)
		resp = &story.GenerationResponse{
			StoryTitle:      fmt.Sprintf("%s Station", req.StationName),
			PageContent:     "The station waits in silence. Something here wants to be found.",
			Options:         s.gen.Options(theme)[:2],
			EstimatedLength: 3,
			Difficulty:      story.ThemeDifficulty(theme),
			Theme:           theme,
			StationName:     req.StationName,
			LineNumber:      req.LineNumber,
		}
	}
	resp.QualityScore = FallbackQualityScore
	resp.QualityFeedback = FallbackFeedback
	return resp
}

func decodeContinueResult(result map[string]interface{}) (*story.ContinueResponse, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling continuation: %w", err)
	}
	var resp story.ContinueResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding continuation: %w", err)
	}
	if resp.PageContent == "" {
		return nil, fmt.Errorf("continuation has no page content")
	}
	if len(resp.Options) < story.MinOptions && !resp.IsLastPage {
		return nil, fmt.Errorf("continuation has %d options, need at least %d", len(resp.Options), story.MinOptions)
	}
	return &resp, nil
}
