//go:build integration
// +build integration

// Package integration exercises a running storyserver over HTTP.
// Point API_BASE_URL at the server and set INTERNAL_API_KEY to match
// its configuration, then run with -tags integration.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/behindy-dev/storyserver/internal/middleware"
	"github.com/behindy-dev/storyserver/pkg/multiplayer"
	"github.com/behindy-dev/storyserver/pkg/story"
)

var (
	baseURL     string
	internalKey string
	client      = &http.Client{Timeout: 60 * time.Second}
)

func TestMain(m *testing.M) {
	baseURL = os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	internalKey = os.Getenv("INTERNAL_API_KEY")

	fmt.Printf("Running storyserver integration tests\n")
	fmt.Printf("   API Base URL: %s\n", baseURL)

	os.Exit(m.Run())
}

func postJSON(t *testing.T, path string, body interface{}, privileged bool) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if privileged {
		req.Header.Set(middleware.InternalAPIKeyHeader, internalKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	var health struct {
		Status   string `json:"status"`
		Service  string `json:"service"`
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if health.Service != "storyserver" {
		t.Errorf("unexpected service name %q", health.Service)
	}
	if health.Provider == "" {
		t.Error("health response missing provider")
	}
	t.Logf("health: %s (provider %s)", health.Status, health.Provider)
}

func TestCompleteStory(t *testing.T) {
	req := story.BatchStoryRequest{
		StationName:     "잠실",
		LineNumber:      2,
		CharacterHealth: 80,
		CharacterSanity: 70,
	}
	resp, body := postJSON(t, "/generate-complete-story", req, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}

	var out story.BatchStoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !out.Theme.IsAllowed() {
		t.Errorf("theme %q outside the allowed set", out.Theme)
	}
	if len(out.Pages) < 3 || len(out.Pages) > 8 {
		t.Errorf("got %d pages, want 3 to 8", len(out.Pages))
	}
	for i, page := range out.Pages {
		if page.Content == "" {
			t.Errorf("page %d has empty content", i+1)
		}
		if len(page.Options) < story.MinOptions || len(page.Options) > story.MaxOptions {
			t.Errorf("page %d has %d options", i+1, len(page.Options))
		}
	}
}

func TestValidateStoryStructure(t *testing.T) {
	if internalKey == "" {
		t.Skip("INTERNAL_API_KEY not set")
	}
	resp, body := postJSON(t, "/validate-story-structure", map[string]interface{}{
		"pages": []interface{}{},
	}, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}

	var report story.Report
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.IsValid {
		t.Error("empty story should be invalid")
	}
}

func TestInternalAuthRejected(t *testing.T) {
	if internalKey == "" {
		t.Skip("INTERNAL_API_KEY not set")
	}
	resp, _ := postJSON(t, "/validate-story-structure", map[string]interface{}{}, false)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 without the internal key, got %d", resp.StatusCode)
	}
}

func TestMultiplayerSession(t *testing.T) {
	if internalKey == "" {
		t.Skip("INTERNAL_API_KEY not set")
	}
	intro := multiplayer.PhaseRequest{
		RoomID:      "integration-room",
		StationName: "혜화",
		LineNumber:  4,
		IsIntro:     true,
		Participants: []multiplayer.Participant{
			{CharacterName: "지민", HP: 80, Sanity: 70},
			{CharacterName: "하늘", HP: 60, Sanity: 90},
		},
	}
	resp, body := postJSON(t, "/llm/multiplayer/next-phase", intro, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("intro status %d: %s", resp.StatusCode, body)
	}

	var out multiplayer.PhaseResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decoding intro response: %v", err)
	}
	if out.Phase != 1 {
		t.Errorf("intro phase = %d, want 1", out.Phase)
	}
	if out.StoryOutline == "" {
		t.Error("intro missing story outline")
	}
	if out.StoryContent.CurrentSituation == "" {
		t.Error("intro missing opening scene")
	}
}
