package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager serves system prompts, optionally overridden per provider by
// files in a prompts directory. File naming is <kind>_<provider>.txt
// with <kind>.txt as a provider-independent override.
type Manager struct {
	mu  sync.RWMutex
	dir string

	generation map[string]string
	evaluation map[string]string
}

// NewManager loads overrides from dir. A missing or empty dir is fine;
// built-in defaults cover everything.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{
		dir:        dir,
		generation: make(map[string]string),
		evaluation: make(map[string]string),
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads the prompts directory, replacing all overrides.
func (m *Manager) Reload() error {
	if m.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading prompts dir: %w", err)
	}

	generation := make(map[string]string)
	evaluation := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading prompt file %s: %w", e.Name(), err)
		}
		base := strings.TrimSuffix(e.Name(), ".txt")
		kind, provider := base, ""
		if i := strings.IndexByte(base, '_'); i >= 0 {
			kind, provider = base[:i], base[i+1:]
		}
		switch kind {
		case "generation":
			generation[provider] = string(data)
		case "evaluation":
			evaluation[provider] = string(data)
		}
	}

	m.mu.Lock()
	m.generation = generation
	m.evaluation = evaluation
	m.mu.Unlock()
	return nil
}

// StoryPrompt returns the generation system prompt for a provider.
func (m *Manager) StoryPrompt(provider string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.generation[provider]; ok {
		return p
	}
	if p, ok := m.generation[""]; ok {
		return p
	}
	return fmt.Sprintf(DefaultGenerationSystemPrompt, ThemeConstraint())
}

// EvaluationPrompt returns the scoring system prompt for a provider.
func (m *Manager) EvaluationPrompt(provider string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.evaluation[provider]; ok {
		return p
	}
	if p, ok := m.evaluation[""]; ok {
		return p
	}
	return fmt.Sprintf(DefaultEvaluationSystemPrompt, allowedThemeList())
}
