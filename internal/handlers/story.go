// Package handlers holds the HTTP endpoints. Each handler is a struct
// with ServeHTTP; generation failures never surface as error bodies,
// only 400/403/405/429 do.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/behindy-dev/storyserver/internal/middleware"
	internalstory "github.com/behindy-dev/storyserver/internal/story"
	"github.com/behindy-dev/storyserver/pkg/story"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}

// BatchStoryHandler serves POST /generate-complete-story. Requests
// carrying the internal API key skip the story cache; the route's
// rate limit middleware waves them through too.
type BatchStoryHandler struct {
	service     *internalstory.BatchService
	internalKey string
	logger      *slog.Logger
}

func NewBatchStoryHandler(service *internalstory.BatchService, internalKey string, logger *slog.Logger) *BatchStoryHandler {
	return &BatchStoryHandler{
		service:     service,
		internalKey: internalKey,
		logger:      logger,
	}
}

func (h *BatchStoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	privileged := h.internalKey != "" && r.Header.Get(middleware.InternalAPIKeyHeader) == h.internalKey

	var req story.BatchStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.GenerateCompleteStory(r.Context(), req, !privileged)
	if err != nil {
		// Validation already passed, so this only covers request
		// decode edge cases inside the service.
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("complete story generated",
		"request_id", middleware.RequestID(r.Context()),
		"station", req.StationName,
		"pages", len(resp.Pages),
		"theme", resp.Theme,
		"privileged", privileged)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Error encoding story response", "error", err)
	}
}

// GenerateStoryHandler serves POST /generate-story: the first page of
// a new single-player story through the quality pipeline.
type GenerateStoryHandler struct {
	service *internalstory.Service
	logger  *slog.Logger
}

func NewGenerateStoryHandler(service *internalstory.Service, logger *slog.Logger) *GenerateStoryHandler {
	return &GenerateStoryHandler{service: service, logger: logger}
}

func (h *GenerateStoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req story.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.StationName == "" {
		writeError(w, h.logger, http.StatusBadRequest, "station_name cannot be empty")
		return
	}

	resp, err := h.service.GenerateStory(r.Context(), req)
	if err != nil {
		h.logger.Error("story generation failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to generate story.")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Error encoding story response", "error", err)
	}
}

// ContinueStoryHandler serves POST /continue-story: the next page
// after a player choice.
type ContinueStoryHandler struct {
	service *internalstory.Service
	logger  *slog.Logger
}

func NewContinueStoryHandler(service *internalstory.Service, logger *slog.Logger) *ContinueStoryHandler {
	return &ContinueStoryHandler{service: service, logger: logger}
}

func (h *ContinueStoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req story.ContinueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.StationName == "" {
		writeError(w, h.logger, http.StatusBadRequest, "station_name cannot be empty")
		return
	}
	if req.PreviousChoice == "" {
		writeError(w, h.logger, http.StatusBadRequest, "previous_choice cannot be empty")
		return
	}

	resp := h.service.ContinueStory(r.Context(), req)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Error encoding continuation response", "error", err)
	}
}
