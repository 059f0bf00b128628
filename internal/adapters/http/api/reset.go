package api

import (
	"context"
	"net/http"

	"github.com/okian/topboard/pkg/logger"
)

// ResetDependencies defines the interface for clearing every board.
type ResetDependencies interface {
	ResetAll(ctx context.Context) ([]string, error)
}

// ResetHandler handles reset requests.
type ResetHandler struct {
	deps   ResetDependencies
	logger logger.Logger
}

type resetResponse struct {
	Cleared []string `json:"cleared"`
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps ResetDependencies, l logger.Logger) *ResetHandler {
	return &ResetHandler{deps: deps, logger: l}
}

// HandleReset handles POST /admin/reset requests.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	cleared, err := h.deps.ResetAll(r.Context())
	if err != nil {
		writeEngineError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Cleared: cleared})
}
