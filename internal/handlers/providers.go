package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/behindy-dev/storyserver/internal/config"
	"github.com/behindy-dev/storyserver/internal/services"
)

type ProvidersResponse struct {
	Current   string                    `json:"current"`
	Providers []services.ProviderStatus `json:"providers"`
	Models    map[string]string         `json:"models"`
}

// ProvidersHandler serves GET /providers: which provider is active,
// which are usable, and the configured models.
type ProvidersHandler struct {
	cfg      *config.Config
	provider services.Provider
	logger   *slog.Logger
}

func NewProvidersHandler(cfg *config.Config, provider services.Provider, logger *slog.Logger) *ProvidersHandler {
	return &ProvidersHandler{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
	}
}

func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	response := ProvidersResponse{
		Current:   h.provider.Name(),
		Providers: services.AvailableProviders(h.cfg, h.provider, h.logger),
		Models: map[string]string{
			"openai": h.cfg.OpenAIModel,
			"claude": h.cfg.ClaudeModel,
		},
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding providers response", "error", err)
	}
}
