package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/pkg/logger"
)

const maxActionBodyBytes = 1 << 20

// ActionsHandler handles action submission and the action type catalog.
type ActionsHandler struct {
	recorder Recorder
	catalog  Catalog
	logger   logger.Logger
}

// NewActionsHandler creates a new actions handler.
func NewActionsHandler(recorder Recorder, catalog Catalog, log logger.Logger) *ActionsHandler {
	return &ActionsHandler{recorder: recorder, catalog: catalog, logger: log}
}

type ackResponse struct {
	Status    string `json:"status"`
	ActionID  string `json:"action_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostAction handles POST /actions requests.
func (h *ActionsHandler) HandlePostAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_action"
	var req service.ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	id, duplicate, err := h.recorder.Record(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ActionID: id, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ActionID: id})
}

// HandleListTypes handles GET /action-types?category=C requests.
func (h *ActionsHandler) HandleListTypes(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.ActionTypes(r.URL.Query().Get("category"))
	if entries == nil {
		entries = []registry.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
