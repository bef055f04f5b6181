package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/encounter-engine/pkg/encounter"
	"github.com/jwebster45206/encounter-engine/pkg/selection"
)

type EncounterHandler struct {
	engine *encounter.Engine
	logger *slog.Logger
}

func NewEncounterHandler(engine *encounter.Engine, logger *slog.Logger) *EncounterHandler {
	return &EncounterHandler{engine: engine, logger: logger}
}

// ServeHTTP handles POST /v1/encounters: a turn context in, the selected
// entity (or null) out.
func (h *EncounterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}
	var tc selection.TurnContext
	if err := decodeJSON(w, r, &tc); err != nil {
		h.logger.Warn("Invalid turn context", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid turn context")
		return
	}
	res, err := h.engine.Turn(r.Context(), tc)
	if err != nil {
		h.logger.Error("Turn failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to select an encounter")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}
