package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/encounter-engine/pkg/encounter"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/extract"
	"github.com/jwebster45206/encounter-engine/pkg/store"
	"github.com/jwebster45206/encounter-engine/pkg/textfilter"
)

type NarrativeRequest struct {
	Prose    string            `json:"prose"`
	Mentions []extract.Mention `json:"mentions,omitempty"`
}

// NarrativeResponse lists the entities the prose introduced and every
// clickable entity it mentions, longest names first. Linked is the prose with
// those names marked up as links.
type NarrativeResponse struct {
	Created []*entity.Entity `json:"created"`
	Links   []*entity.Entity `json:"links"`
	Linked  string           `json:"linked"`
	Errors  string           `json:"errors,omitempty"`
}

type NarrativeHandler struct {
	engine *encounter.Engine
	logger *slog.Logger
}

func NewNarrativeHandler(engine *encounter.Engine, logger *slog.Logger) *NarrativeHandler {
	return &NarrativeHandler{engine: engine, logger: logger}
}

func (h *NarrativeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}
	var req NarrativeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prose == "" && len(req.Mentions) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "Request must include prose or mentions")
		return
	}

	created, err := h.engine.IngestNarrative(r.Context(), req.Prose, req.Mentions)
	resp := NarrativeResponse{
		Created: created,
		Links:   h.engine.Store().FindEntitiesInText(req.Prose),
	}
	if resp.Created == nil {
		resp.Created = []*entity.Entity{}
	}
	if resp.Links == nil {
		resp.Links = []*entity.Entity{}
	}
	terms := make([]textfilter.Term, 0, len(resp.Links))
	for _, e := range resp.Links {
		terms = append(terms, textfilter.Term{Text: store.BaseName(e.Name), ID: e.ID})
	}
	resp.Linked = textfilter.NewLinker(terms).Link(req.Prose)
	if err != nil {
		resp.Errors = err.Error()
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
