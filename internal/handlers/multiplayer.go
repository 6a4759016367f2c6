package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	internalmp "github.com/behindy-dev/storyserver/internal/multiplayer"
	"github.com/behindy-dev/storyserver/pkg/multiplayer"
)

// MultiplayerHandler serves POST /llm/multiplayer/next-phase.
type MultiplayerHandler struct {
	engine *internalmp.Engine
	logger *slog.Logger
}

func NewMultiplayerHandler(engine *internalmp.Engine, logger *slog.Logger) *MultiplayerHandler {
	return &MultiplayerHandler{engine: engine, logger: logger}
}

func (h *MultiplayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req multiplayer.PhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}

	resp, err := h.engine.NextPhase(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("phase advanced",
		"room_id", req.RoomID,
		"phase", resp.Phase,
		"is_ending", resp.IsEnding)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Error encoding phase response", "error", err)
	}
}
