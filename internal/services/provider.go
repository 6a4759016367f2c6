package services

import (
	"context"
	"errors"
)

// ErrAuth is returned by a provider when its credentials are rejected.
// Callers treat it as non-retryable.
var ErrAuth = errors.New("provider authentication rejected")

// PromptContext carries the request facts a provider may need beyond
// the prompt text. The local provider builds its deterministic result
// from these.
type PromptContext struct {
	StationName     string
	LineNumber      int
	CharacterHealth int
	CharacterSanity int
}

// GenerateRequest is a single text-generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Context      PromptContext
}

// Provider is a text-generation backend. Generate returns the parsed
// JSON object from the model response. Providers never repair a
// malformed response; a response that is not a single JSON object is
// an error.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (map[string]interface{}, error)
	Name() string
	Available() bool
}
