package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// Flusher saves the current state immediately.
type Flusher interface {
	Flush(ctx context.Context) error
}

type SnapshotHandler struct {
	store  *store.Store
	saver  Flusher
	logger *slog.Logger
}

// NewSnapshotHandler serves the raw snapshot. saver may be nil, in which case
// POST is rejected.
func NewSnapshotHandler(st *store.Store, saver Flusher, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: st, saver: saver, logger: logger}
}

// ServeHTTP routes:
// GET  /v1/snapshot - current raw records and version
// POST /v1/snapshot - save now
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, h.store.Snapshot())
	case http.MethodPost:
		if h.saver == nil {
			writeError(w, h.logger, http.StatusNotImplemented, "Persistence is not configured")
			return
		}
		if err := h.saver.Flush(r.Context()); err != nil {
			h.logger.Error("Snapshot flush failed", "error", err)
			writeError(w, h.logger, http.StatusBadGateway, "Failed to save snapshot")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]int{"version": h.store.Version()})
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
	}
}
