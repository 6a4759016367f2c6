// Package multiplayer advances cooperative room stories phase by
// phase. The engine is stateless: callers send the full room state and
// get back the next phase.
package multiplayer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/behindy-dev/storyserver/internal/services"
	"github.com/behindy-dev/storyserver/pkg/multiplayer"
	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

// Stat delta bounds used when the provider omits effects for a
// participant.
const (
	minDefaultDelta = -2
	maxDefaultDelta = 1
)

// Engine drives multi-participant story phases through a provider,
// with deterministic fallbacks so a room is never left without a
// response.
type Engine struct {
	provider services.Provider
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewEngine wires the phase engine. A nil rng gets a time-seeded
// source.
func NewEngine(provider services.Provider, rng *rand.Rand, logger *slog.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		provider: provider,
		rng:      rng,
		logger:   logger,
	}
}

// NextPhase advances the room by one phase. Intro requests open the
// story at phase 1; all others move from the current phase to the
// next. Provider failures are absorbed into themed fallback phases.
func (e *Engine) NextPhase(ctx context.Context, req multiplayer.PhaseRequest) (*multiplayer.PhaseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IsIntro {
		return e.intro(ctx, req), nil
	}
	return e.advance(ctx, req), nil
}

func (e *Engine) intro(ctx context.Context, req multiplayer.PhaseRequest) *multiplayer.PhaseResponse {
	result, err := e.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: prompts.MultiplayerSystemPrompt,
		UserPrompt:   prompts.IntroPrompt(req),
		Context: services.PromptContext{
			StationName: req.StationName,
			LineNumber:  req.LineNumber,
		},
	})
	if err != nil {
		e.logger.Warn("intro generation failed, serving fallback",
			"room_id", req.RoomID, "error", err)
		return e.fallbackIntro(req)
	}

	resp, err := decodeIntro(result)
	if err != nil {
		e.logger.Warn("intro response malformed, serving fallback",
			"room_id", req.RoomID, "error", err)
		return e.fallbackIntro(req)
	}
	return resp
}

func (e *Engine) advance(ctx context.Context, req multiplayer.PhaseRequest) *multiplayer.PhaseResponse {
	next := req.Phase + 1

	result, err := e.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: prompts.MultiplayerSystemPrompt,
		UserPrompt:   prompts.PhasePrompt(req),
		Context: services.PromptContext{
			StationName: req.StationName,
			LineNumber:  req.LineNumber,
		},
	})
	if err != nil {
		e.logger.Warn("phase generation failed, serving fallback",
			"room_id", req.RoomID, "phase", next, "error", err)
		return e.fallbackPhase(req, next)
	}

	resp, err := e.decodePhase(result, req, next)
	if err != nil {
		e.logger.Warn("phase response malformed, serving fallback",
			"room_id", req.RoomID, "phase", next, "error", err)
		return e.fallbackPhase(req, next)
	}
	return resp
}

func decodeIntro(result map[string]interface{}) (*multiplayer.PhaseResponse, error) {
	content, err := decodeStoryContent(result["story_content"])
	if err != nil {
		return nil, err
	}

	outline, _ := result["story_outline"].(string)
	if outline == "" {
		return nil, fmt.Errorf("intro response has no story outline")
	}
	summary, _ := result["phase_summary"].(string)

	// The opening never carries effects or an ending.
	return &multiplayer.PhaseResponse{
		Phase:        1,
		StoryContent: *content,
		StoryOutline: outline,
		PhaseSummary: summary,
		Effects:      []multiplayer.ParticipantUpdate{},
		IsEnding:     false,
	}, nil
}

func (e *Engine) decodePhase(result map[string]interface{}, req multiplayer.PhaseRequest, next int) (*multiplayer.PhaseResponse, error) {
	content, err := decodeStoryContent(result["story_content"])
	if err != nil {
		return nil, err
	}

	summary, _ := result["phase_summary"].(string)
	isEnding, _ := result["is_ending"].(bool)
	endingSummary, _ := result["ending_summary"].(string)

	// The final phase ends no matter what the provider decided.
	if next >= multiplayer.EndingPhase {
		isEnding = true
	}
	if isEnding && endingSummary == "" {
		endingSummary = e.fallbackEndingSummary(req)
	}
	if !isEnding {
		endingSummary = ""
	}

	effects, err := decodeEffects(result["effects"])
	if err != nil {
		return nil, err
	}
	effects = e.fillEffects(effects, req.Participants)

	return &multiplayer.PhaseResponse{
		Phase:         next,
		StoryContent:  *content,
		PhaseSummary:  summary,
		Effects:       effects,
		IsEnding:      isEnding,
		EndingSummary: endingSummary,
	}, nil
}

func decodeStoryContent(raw interface{}) (*multiplayer.StoryContent, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response has no story_content object")
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling story content: %w", err)
	}
	var content multiplayer.StoryContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decoding story content: %w", err)
	}
	if content.CurrentSituation == "" {
		return nil, fmt.Errorf("story content has no current situation")
	}
	return &content, nil
}

func decodeEffects(raw interface{}) ([]multiplayer.ParticipantUpdate, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("effects is not a list")
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling effects: %w", err)
	}
	var effects []multiplayer.ParticipantUpdate
	if err := json.Unmarshal(data, &effects); err != nil {
		return nil, fmt.Errorf("decoding effects: %w", err)
	}
	return effects, nil
}

// fillEffects guarantees exactly one update per known participant.
// Provider updates for unknown characters are dropped; missing ones
// get small random deltas.
func (e *Engine) fillEffects(provided []multiplayer.ParticipantUpdate, participants []multiplayer.Participant) []multiplayer.ParticipantUpdate {
	byName := make(map[string]multiplayer.ParticipantUpdate, len(provided))
	for _, u := range provided {
		byName[u.CharacterName] = u
	}

	effects := make([]multiplayer.ParticipantUpdate, 0, len(participants))
	for _, p := range participants {
		if u, ok := byName[p.CharacterName]; ok {
			effects = append(effects, u)
			continue
		}
		effects = append(effects, multiplayer.ParticipantUpdate{
			CharacterName: p.CharacterName,
			HPChange:      e.randomDelta(),
			SanityChange:  e.randomDelta(),
		})
	}
	return effects
}

func (e *Engine) randomDelta() int {
	return minDefaultDelta + e.rng.Intn(maxDefaultDelta-minDefaultDelta+1)
}

func (e *Engine) fallbackIntro(req multiplayer.PhaseRequest) *multiplayer.PhaseResponse {
	theme := story.FallbackTheme(req.StationName, e.rng)
	return &multiplayer.PhaseResponse{
		Phase: 1,
		StoryContent: multiplayer.StoryContent{
			CurrentSituation: fmt.Sprintf("The last train pulls out of %s station and the lights begin to fail. The exits no longer lead where they should, and a %s settles over the platform.", req.StationName, themeMood(theme)),
			SpecialEvent:     "The departure board flickers and every destination changes to the same unknown name.",
			Hint:             "Stay together and search the platform before the lights give out.",
		},
		StoryOutline: fmt.Sprintf("A %s incident traps the party in %s station. Across the coming phases they uncover its cause, face it at the climax, and fight their way back out.", theme, req.StationName),
		PhaseSummary: fmt.Sprintf("The party is trapped in %s station as something begins.", req.StationName),
		Effects:      []multiplayer.ParticipantUpdate{},
		IsEnding:     false,
	}
}

func (e *Engine) fallbackPhase(req multiplayer.PhaseRequest, next int) *multiplayer.PhaseResponse {
	theme := story.FallbackTheme(req.StationName, e.rng)
	isEnding := next >= multiplayer.EndingPhase

	resp := &multiplayer.PhaseResponse{
		Phase: next,
		StoryContent: multiplayer.StoryContent{
			CurrentSituation: fmt.Sprintf("Deeper in %s station the %s tightens its grip. The corridors repeat themselves, and something keeps pace just beyond the light.", req.StationName, themeMood(theme)),
			SpecialEvent:     "A sealed maintenance door now stands open, breathing cold air.",
			Hint:             "The open door is the only way that is not a circle.",
		},
		PhaseSummary: fmt.Sprintf("Phase %d: the party presses deeper into %s station.", next, req.StationName),
		Effects:      e.fillEffects(nil, req.Participants),
		IsEnding:     isEnding,
	}
	if isEnding {
		resp.EndingSummary = e.fallbackEndingSummary(req)
	}
	return resp
}

func (e *Engine) fallbackEndingSummary(req multiplayer.PhaseRequest) string {
	theme := story.FallbackTheme(req.StationName, e.rng)
	names := make([]string, 0, len(req.Participants))
	for _, p := range req.Participants {
		names = append(names, p.CharacterName)
	}
	return fmt.Sprintf(
		"What began as a missed last train at %s station became a descent into something older than the tunnels themselves. "+
			"The party of %d stood together against the %s that had claimed the station, tracing its cause through flickering corridors, "+
			"sealed doors that opened on their own, and a departure board that only ever named one destination. "+
			"At the heart of the station they faced what waited there and refused to become part of it. "+
			"When the first morning train finally arrived, %s walked out into daylight, carrying what they had learned and leaving the platform quiet behind them. "+
			"The station has reopened since. Nobody who was there that night waits on that platform after the last train anymore.",
		req.StationName, len(req.Participants), themeMood(theme), joinNames(names))
}

func themeMood(theme story.Theme) string {
	switch theme {
	case story.ThemeHorror:
		return "dread"
	case story.ThemeThriller:
		return "pursuit"
	default:
		return "wrongness"
	}
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return "the party"
	case 1:
		return names[0]
	default:
		out := names[0]
		for _, n := range names[1 : len(names)-1] {
			out += ", " + n
		}
		return out + " and " + names[len(names)-1]
	}
}
