package multiplayer

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"testing"

	"github.com/behindy-dev/storyserver/internal/services"
	"github.com/behindy-dev/storyserver/pkg/multiplayer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(provider services.Provider) *Engine {
	return NewEngine(provider, rand.New(rand.NewSource(11)), testLogger())
}

func phaseRequest(phase int, isIntro bool) multiplayer.PhaseRequest {
	return multiplayer.PhaseRequest{
		RoomID:      "room-1",
		StationName: "혜화",
		LineNumber:  4,
		Phase:       phase,
		IsIntro:     isIntro,
		Participants: []multiplayer.Participant{
			{CharacterName: "지민", HP: 80, Sanity: 70},
			{CharacterName: "하늘", HP: 60, Sanity: 90},
		},
	}
}

func introResult() map[string]interface{} {
	return map[string]interface{}{
		"story_outline": "The party is trapped, uncovers the cause, faces it, escapes.",
		"story_content": map[string]interface{}{
			"current_situation": "The last train leaves without you.",
			"special_event":     "The PA crackles to life.",
			"hint":              "Check the station office.",
		},
		"phase_summary": "The party is trapped.",
	}
}

func phaseResult() map[string]interface{} {
	return map[string]interface{}{
		"story_content": map[string]interface{}{
			"current_situation": "The corridor bends back on itself.",
			"special_event":     "A door opens on its own.",
			"hint":              "Follow the cold air.",
		},
		"phase_summary": "The party finds an open door.",
		"effects": []interface{}{
			map[string]interface{}{"character_name": "지민", "hp_change": -1.0, "sanity_change": 0.0},
		},
		"is_ending": false,
	}
}

func TestNextPhaseIntro(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateResults(introResult())

	resp, err := newTestEngine(provider).NextPhase(context.Background(), phaseRequest(0, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Phase != 1 {
		t.Errorf("intro must open at phase 1, got %d", resp.Phase)
	}
	if resp.StoryOutline == "" {
		t.Error("intro must carry the story outline")
	}
	if resp.IsEnding {
		t.Error("intro can never end the story")
	}
	if len(resp.Effects) != 0 {
		t.Errorf("intro carries no effects, got %d", len(resp.Effects))
	}
}

func TestNextPhaseAdvance(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateResults(phaseResult())

	resp, err := newTestEngine(provider).NextPhase(context.Background(), phaseRequest(2, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Phase != 3 {
		t.Errorf("expected phase 3, got %d", resp.Phase)
	}
	if resp.IsEnding {
		t.Error("phase 3 should not end")
	}
	// One update per participant: the provided one plus a filled one.
	if len(resp.Effects) != 2 {
		t.Fatalf("expected one effect per participant, got %d", len(resp.Effects))
	}
	byName := map[string]multiplayer.ParticipantUpdate{}
	for _, u := range resp.Effects {
		byName[u.CharacterName] = u
	}
	if byName["지민"].HPChange != -1 {
		t.Errorf("provided effect should be kept, got %+v", byName["지민"])
	}
	filled := byName["하늘"]
	if filled.HPChange < -2 || filled.HPChange > 1 || filled.SanityChange < -2 || filled.SanityChange > 1 {
		t.Errorf("filled effect out of range: %+v", filled)
	}
}

func TestNextPhaseForcedEnding(t *testing.T) {
	provider := services.NewStubProvider()
	// Provider refuses to end even at the final phase.
	provider.SetGenerateResults(phaseResult())

	resp, err := newTestEngine(provider).NextPhase(context.Background(), phaseRequest(multiplayer.EndingPhase-1, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.IsEnding {
		t.Error("final phase must end the story")
	}
	if resp.EndingSummary == "" {
		t.Error("forced ending must carry an ending summary")
	}
}

func TestNextPhaseProviderEnding(t *testing.T) {
	provider := services.NewStubProvider()
	result := phaseResult()
	result["is_ending"] = true
	result["ending_summary"] = "The party escaped at dawn after facing what lived beneath the platform."
	provider.SetGenerateResults(result)

	resp, err := newTestEngine(provider).NextPhase(context.Background(), phaseRequest(multiplayer.ClimaxPhase, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.IsEnding {
		t.Error("provider ending should be honored")
	}
	if resp.EndingSummary == "" {
		t.Error("ending summary should be kept")
	}
}

func TestNextPhaseFallbackOnError(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateError(errors.New("provider down"))

	engine := newTestEngine(provider)

	intro, err := engine.NextPhase(context.Background(), phaseRequest(0, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intro.Phase != 1 || intro.StoryOutline == "" || intro.StoryContent.CurrentSituation == "" {
		t.Errorf("fallback intro incomplete: %+v", intro)
	}

	mid, err := engine.NextPhase(context.Background(), phaseRequest(3, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mid.Phase != 4 || mid.StoryContent.CurrentSituation == "" {
		t.Errorf("fallback phase incomplete: %+v", mid)
	}
	if len(mid.Effects) != 2 {
		t.Errorf("fallback phase should fill effects, got %d", len(mid.Effects))
	}

	final, err := engine.NextPhase(context.Background(), phaseRequest(multiplayer.EndingPhase-1, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !final.IsEnding || final.EndingSummary == "" {
		t.Error("fallback at the final phase must end with a summary")
	}
}

func TestNextPhaseMalformedResponseFallsBack(t *testing.T) {
	provider := services.NewStubProvider()
	provider.SetGenerateResults(map[string]interface{}{"story_content": "not an object"})

	resp, err := newTestEngine(provider).NextPhase(context.Background(), phaseRequest(1, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Phase != 2 || resp.StoryContent.CurrentSituation == "" {
		t.Errorf("malformed response should fall back to a complete phase: %+v", resp)
	}
}

func TestNextPhaseRejectsBadRequest(t *testing.T) {
	engine := newTestEngine(services.NewStubProvider())

	req := phaseRequest(1, false)
	req.StationName = ""
	if _, err := engine.NextPhase(context.Background(), req); err == nil {
		t.Error("empty station should be rejected")
	}

	req = phaseRequest(1, false)
	req.Participants = nil
	if _, err := engine.NextPhase(context.Background(), req); err == nil {
		t.Error("empty participants should be rejected")
	}
}
