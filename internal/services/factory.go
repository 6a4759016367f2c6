package services

import (
	"log/slog"

	"github.com/behindy-dev/storyserver/internal/config"
)

// NewProvider builds the provider selected by configuration, falling
// back to the next usable one in a fixed order. The configured remote
// is preferred, then the other remote, then the local templates.
func NewProvider(cfg *config.Config, logger *slog.Logger) Provider {
	candidates := candidateOrder(cfg, logger)
	for _, p := range candidates {
		if p.Available() {
			if p.Name() != cfg.AIProvider {
				logger.Warn("configured provider unavailable, falling back",
					"configured", cfg.AIProvider,
					"selected", p.Name())
			}
			return p
		}
	}
	// Unreachable, the local provider is always available.
	return NewMockProvider(nil, logger)
}

func candidateOrder(cfg *config.Config, logger *slog.Logger) []Provider {
	openAI := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIMaxTokens, logger)
	claude := NewClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, logger)
	mock := NewMockProvider(nil, logger)

	switch cfg.AIProvider {
	case "openai":
		return []Provider{openAI, claude, mock}
	case "claude":
		return []Provider{claude, openAI, mock}
	default:
		return []Provider{mock}
	}
}

// ProviderStatus describes one provider for the status endpoint.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Active    bool   `json:"active"`
}

// AvailableProviders reports every known provider, its availability
// and whether it is the active one.
func AvailableProviders(cfg *config.Config, active Provider, logger *slog.Logger) []ProviderStatus {
	all := []Provider{
		NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIMaxTokens, logger),
		NewClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, logger),
		NewMockProvider(nil, logger),
	}

	statuses := make([]ProviderStatus, 0, len(all))
	for _, p := range all {
		statuses = append(statuses, ProviderStatus{
			Name:      p.Name(),
			Available: p.Available(),
			Active:    p.Name() == active.Name(),
		})
	}
	return statuses
}
