package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/behindy-dev/storyserver/pkg/story"
)

// ValidateHandler serves POST /validate-story-structure. It always
// returns a report for well-formed JSON; structural problems live in
// the report, not the HTTP status.
type ValidateHandler struct {
	logger *slog.Logger
}

func NewValidateHandler(logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{logger: logger}
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}

	report := story.ValidateStoryStructure(payload)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Error("Error encoding validation report", "error", err)
	}
}
