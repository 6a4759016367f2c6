package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/behindy-dev/storyserver/internal/ratelimit"
	"github.com/behindy-dev/storyserver/internal/services"
	internalstory "github.com/behindy-dev/storyserver/internal/story"
)

type HealthResponse struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	Service       string                 `json:"service"`
	Provider      string                 `json:"provider"`
	TotalRequests uint64                 `json:"total_requests"`
	Components    map[string]interface{} `json:"components"`
	Pipeline      internalstory.Snapshot `json:"pipeline"`
}

type HealthHandler struct {
	cache    services.Cache
	provider services.Provider
	limiter  *ratelimit.Limiter
	stats    *internalstory.Stats
	logger   *slog.Logger
}

func NewHealthHandler(cache services.Cache, provider services.Provider, limiter *ratelimit.Limiter, stats *internalstory.Stats, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cache:    cache,
		provider: provider,
		limiter:  limiter,
		stats:    stats,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("Cache health check failed", "error", err)
		components["cache"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["cache"] = "healthy"
	}

	if h.provider.Available() {
		components["provider"] = "healthy"
	} else {
		components["provider"] = "unavailable"
		overallStatus = "degraded"
	}

	response := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now(),
		Service:       "storyserver",
		Provider:      h.provider.Name(),
		TotalRequests: h.limiter.Total(),
		Components:    components,
		Pipeline:      h.stats.Snapshot(),
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
