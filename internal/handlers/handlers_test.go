package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/behindy-dev/storyserver/internal/config"
	"github.com/behindy-dev/storyserver/internal/middleware"
	internalmp "github.com/behindy-dev/storyserver/internal/multiplayer"
	"github.com/behindy-dev/storyserver/internal/ratelimit"
	"github.com/behindy-dev/storyserver/internal/services"
	internalstory "github.com/behindy-dev/storyserver/internal/story"
	"github.com/behindy-dev/storyserver/pkg/multiplayer"
	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// testStack wires the full pipeline against the deterministic local
// provider, the way main does.
type testStack struct {
	provider *services.MockProvider
	limiter  *ratelimit.Limiter
	stats    *internalstory.Stats
	batch    *internalstory.BatchService
	single   *internalstory.Service
	engine   *internalmp.Engine
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	logger := testLogger()
	rng := rand.New(rand.NewSource(5))
	provider := services.NewMockProvider(rng, logger)
	provider.SetDelay(0)

	pm, err := prompts.NewManager("")
	if err != nil {
		t.Fatal(err)
	}

	stats := internalstory.NewStats()
	scorer := internalstory.NewScorer(provider, pm, 70, logger)
	gen := story.NewTemplateGenerator(rand.New(rand.NewSource(5)))

	return &testStack{
		provider: provider,
		limiter:  ratelimit.New(100, time.Hour),
		stats:    stats,
		batch:    internalstory.NewBatchService(provider, pm, gen, nil, time.Hour, stats, logger),
		single:   internalstory.NewService(provider, pm, scorer, 3, stats, rng, logger),
		engine:   internalmp.NewEngine(provider, rng, logger),
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBatchStoryHandler(t *testing.T) {
	stack := newTestStack(t)
	handler := NewBatchStoryHandler(stack.batch, "secret", testLogger())

	rec := postJSON(t, handler, "/generate-complete-story", story.BatchStoryRequest{
		StationName:     "잠실",
		LineNumber:      2,
		CharacterHealth: 80,
		CharacterSanity: 80,
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp story.BatchStoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a story: %v", err)
	}

	if !resp.Theme.IsAllowed() {
		t.Errorf("theme outside allowed set: %s", resp.Theme)
	}
	if resp.Theme != story.ThemeHorror {
		t.Errorf("expected deterministic horror for 잠실, got %s", resp.Theme)
	}
	if len(resp.Pages) < 3 || len(resp.Pages) > 8 {
		t.Errorf("page count out of range: %d", len(resp.Pages))
	}
	if resp.EstimatedLength != len(resp.Pages) {
		t.Errorf("estimated_length %d != pages %d", resp.EstimatedLength, len(resp.Pages))
	}
	for i, page := range resp.Pages {
		if page.Content == "" {
			t.Errorf("page %d empty", i+1)
		}
		if len(page.Options) < story.MinOptions || len(page.Options) > story.MaxOptions {
			t.Errorf("page %d option count %d", i+1, len(page.Options))
		}
		for _, opt := range page.Options {
			if opt.Amount < story.MinEffectAmount || opt.Amount > story.MaxEffectAmount {
				t.Errorf("page %d option amount %d out of range", i+1, opt.Amount)
			}
		}
	}
}

func TestBatchStoryHandlerErrors(t *testing.T) {
	stack := newTestStack(t)
	handler := NewBatchStoryHandler(stack.batch, "secret", testLogger())

	// Wrong method.
	req := httptest.NewRequest(http.MethodGet, "/generate-complete-story", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}

	// Malformed body.
	req = httptest.NewRequest(http.MethodPost, "/generate-complete-story", bytes.NewReader([]byte("not json")))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}

	// Invalid request values.
	rec = postJSON(t, handler, "/generate-complete-story", story.BatchStoryRequest{
		StationName: "잠실", LineNumber: 9,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad line number, got %d", rec.Code)
	}
}

// The batch route is served behind middleware.RateLimit, the way main
// wires it.
func TestBatchStoryRouteRateLimit(t *testing.T) {
	stack := newTestStack(t)
	limiter := ratelimit.New(1, time.Hour)
	handler := middleware.RateLimit(limiter, "secret", testLogger(),
		NewBatchStoryHandler(stack.batch, "secret", testLogger()))

	body := story.BatchStoryRequest{
		StationName: "강남", LineNumber: 2, CharacterHealth: 80, CharacterSanity: 80,
	}

	if rec := postJSON(t, handler, "/generate-complete-story", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("first public request should pass, got %d", rec.Code)
	}
	if rec := postJSON(t, handler, "/generate-complete-story", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second public request should be limited, got %d", rec.Code)
	}

	// The internal key bypasses the limit.
	headers := map[string]string{middleware.InternalAPIKeyHeader: "secret"}
	if rec := postJSON(t, handler, "/generate-complete-story", body, headers); rec.Code != http.StatusOK {
		t.Errorf("privileged request should bypass the limit, got %d", rec.Code)
	}
}

func TestGenerateStoryHandler(t *testing.T) {
	stack := newTestStack(t)
	handler := NewGenerateStoryHandler(stack.single, testLogger())

	rec := postJSON(t, handler, "/generate-story", story.GenerationRequest{
		StationName:     "강남",
		LineNumber:      2,
		CharacterHealth: 80,
		CharacterSanity: 80,
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp story.GenerationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if !resp.Theme.IsAllowed() {
		t.Errorf("theme outside allowed set: %s", resp.Theme)
	}
	if resp.QualityScore <= 0 {
		t.Errorf("quality score should be attached, got %g", resp.QualityScore)
	}
	if len(resp.Options) < story.MinOptions || len(resp.Options) > story.MaxOptions {
		t.Errorf("option count out of range: %d", len(resp.Options))
	}

	// Missing station.
	rec = postJSON(t, handler, "/generate-story", story.GenerationRequest{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without station, got %d", rec.Code)
	}
}

func TestContinueStoryHandler(t *testing.T) {
	stack := newTestStack(t)
	handler := NewContinueStoryHandler(stack.single, testLogger())

	rec := postJSON(t, handler, "/continue-story", story.ContinueRequest{
		StationName:    "혜화",
		LineNumber:     4,
		PreviousChoice: "Calmly observe your surroundings",
		Theme:          story.ThemeHorror,
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp story.ContinueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.PageContent == "" {
		t.Error("continuation should carry content")
	}

	// Missing previous choice.
	rec = postJSON(t, handler, "/continue-story", story.ContinueRequest{StationName: "혜화"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without previous choice, got %d", rec.Code)
	}
}

func TestMultiplayerHandler(t *testing.T) {
	stack := newTestStack(t)
	handler := NewMultiplayerHandler(stack.engine, testLogger())

	participants := []multiplayer.Participant{
		{CharacterName: "지민", HP: 80, Sanity: 70},
		{CharacterName: "하늘", HP: 60, Sanity: 90},
		{CharacterName: "도윤", HP: 90, Sanity: 60},
	}

	// Intro opens at phase 1 with no effects.
	rec := postJSON(t, handler, "/llm/multiplayer/next-phase", multiplayer.PhaseRequest{
		RoomID:       "room-1",
		StationName:  "혜화",
		LineNumber:   4,
		IsIntro:      true,
		Participants: participants,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var intro multiplayer.PhaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &intro); err != nil {
		t.Fatal(err)
	}
	if intro.Phase != 1 || intro.IsEnding || len(intro.Effects) != 0 {
		t.Errorf("unexpected intro: %+v", intro)
	}
	if intro.StoryOutline == "" {
		t.Error("intro should carry a story outline")
	}

	// A mid phase fills one effect per participant.
	rec = postJSON(t, handler, "/llm/multiplayer/next-phase", multiplayer.PhaseRequest{
		RoomID:       "room-1",
		StationName:  "혜화",
		LineNumber:   4,
		Phase:        2,
		StoryOutline: intro.StoryOutline,
		Participants: participants,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var mid multiplayer.PhaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &mid); err != nil {
		t.Fatal(err)
	}
	if mid.Phase != 3 {
		t.Errorf("expected phase 3, got %d", mid.Phase)
	}
	if len(mid.Effects) != len(participants) {
		t.Errorf("expected %d effects, got %d", len(participants), len(mid.Effects))
	}

	// Missing participants is a request error.
	rec = postJSON(t, handler, "/llm/multiplayer/next-phase", multiplayer.PhaseRequest{
		RoomID: "room-1", StationName: "혜화", Phase: 1,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without participants, got %d", rec.Code)
	}
}

func TestValidateHandler(t *testing.T) {
	handler := NewValidateHandler(testLogger())

	rec := postJSON(t, handler, "/validate-story-structure", map[string]interface{}{
		"pages": []interface{}{},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report story.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.IsValid {
		t.Error("empty story should not validate")
	}
	if len(report.Errors) == 0 {
		t.Error("report should carry errors")
	}

	valid := map[string]interface{}{
		"story_title": "t",
		"description": "d",
		"theme":       "horror",
		"keywords":    []interface{}{"k"},
		"pages": []interface{}{
			map[string]interface{}{
				"content": "page one",
				"options": []interface{}{
					map[string]interface{}{"content": "a", "effect": "health", "amount": -1, "effect_preview": "Health -1"},
					map[string]interface{}{"content": "b", "effect": "none", "amount": 0, "effect_preview": "No change"},
				},
			},
			map[string]interface{}{
				"content": "page two",
				"options": []interface{}{
					map[string]interface{}{"content": "a", "effect": "sanity", "amount": 2, "effect_preview": "Sanity +2"},
					map[string]interface{}{"content": "b", "effect": "none", "amount": 0, "effect_preview": "No change"},
				},
			},
		},
	}
	rec = postJSON(t, handler, "/validate-story-structure", valid, nil)

	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if !report.IsValid {
		t.Errorf("valid story rejected: %v", report.Errors)
	}
	if !report.ThemeValid {
		t.Error("horror theme should be valid")
	}
	// Two pages is short but acceptable.
	if len(report.Warnings) == 0 {
		t.Error("short story should warn")
	}
}

func TestHealthHandler(t *testing.T) {
	stack := newTestStack(t)
	cache := services.NewMockCache()
	handler := NewHealthHandler(cache, stack.provider, stack.limiter, stack.stats, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Provider != "mock" {
		t.Errorf("expected mock provider, got %s", resp.Provider)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	stack := newTestStack(t)
	cache := services.NewMockCache()
	cache.PingFunc = func(ctx context.Context) error {
		return errors.New("connection failed")
	}

	handler := NewHealthHandler(cache, stack.provider, stack.limiter, stack.stats, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the cache is down, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	if resp.Components["cache"] != "unhealthy" {
		t.Errorf("expected unhealthy cache component, got %v", resp.Components["cache"])
	}
}

func TestProvidersHandler(t *testing.T) {
	stack := newTestStack(t)
	cfg := &config.Config{
		AIProvider:  "mock",
		OpenAIModel: "gpt-4o-mini",
		ClaudeModel: "claude-3-haiku-20240307",
	}
	handler := NewProvidersHandler(cfg, stack.provider, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ProvidersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Current != "mock" {
		t.Errorf("expected mock current, got %s", resp.Current)
	}
	if len(resp.Providers) != 3 {
		t.Errorf("expected 3 providers, got %d", len(resp.Providers))
	}
	if resp.Models["openai"] != "gpt-4o-mini" {
		t.Errorf("unexpected models map: %v", resp.Models)
	}

	// Only GET.
	rec = postJSON(t, handler, "/providers", map[string]string{}, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
