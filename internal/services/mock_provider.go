package services

import (
	"context"
	"sync"
)

// StubProvider is a test double for Provider with configurable
// behavior and call tracking.
type StubProvider struct {
	GenerateFunc func(ctx context.Context, req GenerateRequest) (map[string]interface{}, error)
	NameValue    string
	Unavailable  bool

	// Track calls for testing
	GenerateCalls []GenerateRequest

	mu sync.Mutex // protects all fields above
}

var _ Provider = (*StubProvider)(nil)

// NewStubProvider creates a stub provider named "stub".
func NewStubProvider() *StubProvider {
	return &StubProvider{
		NameValue:     "stub",
		GenerateCalls: make([]GenerateRequest, 0),
	}
}

func (s *StubProvider) Generate(ctx context.Context, req GenerateRequest) (map[string]interface{}, error) {
	s.mu.Lock()
	s.GenerateCalls = append(s.GenerateCalls, req)
	fn := s.GenerateFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return map[string]interface{}{}, nil
}

func (s *StubProvider) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NameValue == "" {
		return "stub"
	}
	return s.NameValue
}

func (s *StubProvider) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Unavailable
}

// SetGenerateError sets up the stub to fail every Generate call.
func (s *StubProvider) SetGenerateError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GenerateFunc = func(ctx context.Context, req GenerateRequest) (map[string]interface{}, error) {
		return nil, err
	}
}

// SetGenerateResults sets up the stub to return each result in turn,
// repeating the last one once exhausted.
func (s *StubProvider) SetGenerateResults(results ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	s.GenerateFunc = func(ctx context.Context, req GenerateRequest) (map[string]interface{}, error) {
		if i >= len(results) {
			return results[len(results)-1], nil
		}
		r := results[i]
		i++
		return r, nil
	}
}

// Calls returns a copy of the recorded Generate calls.
func (s *StubProvider) Calls() []GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]GenerateRequest, len(s.GenerateCalls))
	copy(calls, s.GenerateCalls)
	return calls
}

// Reset clears all call tracking.
func (s *StubProvider) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GenerateCalls = make([]GenerateRequest, 0)
}
