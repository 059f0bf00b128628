package api

import (
	"context"
	"net/http"

	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
)

// ScoresDependencies defines the interface for score writes.
type ScoresDependencies interface {
	Submit(ctx context.Context, mode, name string, score, accuracy, efficiency any) (ranking.SubmitResult, error)
	Delete(ctx context.Context, mode, name string, efficiency any) error
	Edit(ctx context.Context, req ranking.EditRequest) error
}

// submitRequest mirrors the OpenAPI schema for POST /scores. Numeric
// fields accept numbers or numeric strings.
type submitRequest struct {
	Mode       string `json:"mode"`
	Name       string `json:"name"`
	Score      any    `json:"score"`
	Accuracy   any    `json:"accuracy"`
	Efficiency any    `json:"efficiency"`
}

type deleteRequest struct {
	Mode       string `json:"mode"`
	Name       string `json:"name"`
	Efficiency any    `json:"efficiency"`
}

type editRequest struct {
	Mode          string `json:"mode"`
	OldName       string `json:"old_name"`
	OldEfficiency any    `json:"old_efficiency"`
	Name          string `json:"name"`
	Score         any    `json:"score"`
	Accuracy      any    `json:"accuracy"`
	Efficiency    any    `json:"efficiency"`
}

// ScoresHandler handles score requests.
type ScoresHandler struct {
	deps   ScoresDependencies
	logger logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies, l logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, logger: l}
}

// HandleSubmit handles POST /scores requests.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	res, err := h.deps.Submit(r.Context(), req.Mode, req.Name, req.Score, req.Accuracy, req.Efficiency)
	if err != nil {
		writeEngineError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDelete handles DELETE /scores requests.
func (h *ScoresHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.deps.Delete(r.Context(), req.Mode, req.Name, req.Efficiency); err != nil {
		writeEngineError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}

// HandleEdit handles PUT /scores requests.
func (h *ScoresHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	err := h.deps.Edit(r.Context(), ranking.EditRequest{
		Mode:          req.Mode,
		OldName:       req.OldName,
		OldEfficiency: req.OldEfficiency,
		NewName:       req.Name,
		NewScore:      req.Score,
		NewAccuracy:   req.Accuracy,
		NewEfficiency: req.Efficiency,
	})
	if err != nil {
		writeEngineError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "updated"})
}
