package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/encounter"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

const entitiesPrefix = "/v1/entities"

type EntityHandler struct {
	engine *encounter.Engine
	logger *slog.Logger
}

func NewEntityHandler(engine *encounter.Engine, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{engine: engine, logger: logger}
}

// ServeHTTP routes entity requests:
// GET    /v1/entities[?type=&tier=]      - list raw records
// GET    /v1/entities/{id}               - enriched view
// GET    /v1/entities/by-name/{name}     - enriched view by name
// POST   /v1/entities                    - register or merge
// PATCH  /v1/entities/{id}               - deep-merge update
// DELETE /v1/entities/{id}               - remove
// POST   /v1/entities/{id}/check         - skill check
// POST   /v1/entities/{id}/interactions  - record an interaction
func (h *EntityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), entitiesPrefix), "/")
	parts := []string{}
	if path != "" {
		parts = strings.Split(path, "/")
	}

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleRegister(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
		}

	case len(parts) == 2 && parts[0] == "by-name":
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		name, err := url.PathUnescape(parts[1])
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid entity name")
			return
		}
		h.handleGetByName(w, name)

	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, id)
		case http.MethodPatch:
			h.handlePatch(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PATCH, DELETE")
		}

	case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "check":
		h.handleCheck(w, r, parts[0])

	case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "interactions":
		h.handleInteraction(w, r, parts[0])

	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *EntityHandler) handleList(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Store()
	q := r.URL.Query()

	var list []*entity.Entity
	if t := q.Get("type"); t != "" {
		typ := entity.Type(t)
		if !typ.Valid() {
			writeError(w, h.logger, http.StatusBadRequest, "Unknown entity type: "+t)
			return
		}
		list = st.ByType(typ)
	} else {
		list = st.All()
	}
	if tier := q.Get("tier"); tier != "" {
		filtered := list[:0]
		for _, e := range list {
			if string(e.Tier) == tier {
				filtered = append(filtered, e)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []*entity.Entity{}
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

func (h *EntityHandler) handleGet(w http.ResponseWriter, id string) {
	e, ok := h.engine.Store().GetByID(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Entity not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, e)
}

func (h *EntityHandler) handleGetByName(w http.ResponseWriter, name string) {
	e, ok := h.engine.Store().GetByName(name)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Entity not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, e)
}

func (h *EntityHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in entity.Entity
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("Invalid entity body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	existed := false
	if in.ID != "" {
		_, existed = h.engine.Store().Raw(in.ID)
	}
	out, err := h.engine.Register(r.Context(), &in)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, h.logger, status, out)
}

func (h *EntityHandler) handlePatch(w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.engine.Store().Update(id, patch)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *EntityHandler) handleDelete(w http.ResponseWriter, id string) {
	if !h.engine.Store().Delete(id) {
		writeError(w, h.logger, http.StatusNotFound, "Entity not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type CheckRequest struct {
	Skill string `json:"skill"`
	DC    int    `json:"dc"`
}

func (h *EntityHandler) handleCheck(w http.ResponseWriter, r *http.Request, id string) {
	var req CheckRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Skill == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Request must include a skill")
		return
	}
	res, err := h.engine.SkillCheck(r.Context(), id, req.Skill, req.DC)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

type InteractionRequest struct {
	With  string `json:"with"`
	Turn  int    `json:"turn,omitempty"`
	Note  string `json:"note"`
	Delta int    `json:"delta"`
}

func (h *EntityHandler) handleInteraction(w http.ResponseWriter, r *http.Request, id string) {
	var req InteractionRequest
	if err := decodeJSON(w, r, &req); err != nil || req.With == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Request must name who the interaction was with")
		return
	}
	rel, err := h.engine.Store().RecordInteraction(id, req.With, entity.Interaction{
		Turn:  req.Turn,
		Note:  req.Note,
		Delta: req.Delta,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rel)
}

func (h *EntityHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrImmutableField):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, entity.ErrMissingID),
		errors.Is(err, entity.ErrMissingType),
		errors.Is(err, entity.ErrUnknownType):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Entity operation failed", "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
	}
}
