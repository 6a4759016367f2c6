package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{
			name:    "bare object",
			input:   `{"theme":"horror"}`,
			wantKey: "theme",
		},
		{
			name:    "object framed with prose",
			input:   "Here is the story:\n{\"theme\":\"mystery\"}\nHope you like it.",
			wantKey: "theme",
		},
		{
			name:    "no object",
			input:   "I cannot produce a story right now.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			input:   `{"theme": "horror`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := extractJSONObject(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := result[tt.wantKey]; !ok {
				t.Errorf("expected key %q in result", tt.wantKey)
			}
		})
	}
}

func TestClaudeProviderAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	p := NewClaudeProvider("bad-key", "test-model", testLogger())
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), GenerateRequest{
		SystemPrompt: "s",
		UserPrompt:   "u",
	})
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestClaudeProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"content": [{"type":"text","text":"Here you go: {\"theme\":\"horror\",\"page_content\":\"dark\"}"}],
			"model": "test-model",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	p := NewClaudeProvider("test-key", "test-model", testLogger())
	p.baseURL = server.URL

	result, err := p.Generate(context.Background(), GenerateRequest{
		SystemPrompt: "s",
		UserPrompt:   "u",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["theme"] != "horror" {
		t.Errorf("expected parsed theme, got %v", result["theme"])
	}
}

func TestClaudeProviderMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"content": [{"type":"text","text":"no json here at all"}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	p := NewClaudeProvider("test-key", "test-model", testLogger())
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), GenerateRequest{UserPrompt: "u"})
	if err == nil {
		t.Error("malformed response should surface an error")
	}
}

func TestClaudeProviderAvailability(t *testing.T) {
	if NewClaudeProvider("", "m", testLogger()).Available() {
		t.Error("provider without key should be unavailable")
	}
	if !NewClaudeProvider("key", "m", testLogger()).Available() {
		t.Error("provider with key should be available")
	}
}

func TestClaudeRequestShape(t *testing.T) {
	temperature := 0.8
	req := claudeRequest{
		Model:       "claude-3-haiku-20240307",
		MaxTokens:   1500,
		Temperature: &temperature,
		System:      "system prompt",
		Messages:    []claudeMessage{{Role: "user", Content: "user prompt"}},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"model", "max_tokens", "temperature", "system", "messages"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("marshaled request missing %q", key)
		}
	}
}

func TestErrAuthSentinel(t *testing.T) {
	wrapped := errors.Join(ErrAuth)
	if !errors.Is(wrapped, ErrAuth) {
		t.Error("ErrAuth should survive wrapping")
	}
}
