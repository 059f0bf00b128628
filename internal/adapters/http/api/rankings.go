package api

import (
	"context"
	"net/http"

	"github.com/okian/topboard/internal/domain/entry"
	"github.com/okian/topboard/pkg/logger"
)

// RankingsDependencies defines the interface for board reads.
type RankingsDependencies interface {
	Rankings(ctx context.Context, mode string) ([]entry.Entry, error)
}

// RankingsHandler handles board requests.
type RankingsHandler struct {
	deps   RankingsDependencies
	logger logger.Logger
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies, l logger.Logger) *RankingsHandler {
	return &RankingsHandler{deps: deps, logger: l}
}

// HandleGetRankings handles GET /rankings?mode=M requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries, err := h.deps.Rankings(r.Context(), r.URL.Query().Get("mode"))
	if err != nil {
		writeEngineError(r.Context(), h.logger, w, err)
		return
	}
	rows := make([]rankingRow, len(entries))
	for i, e := range entries {
		rows[i] = toRow(i+1, e)
	}
	writeJSON(w, http.StatusOK, rows)
}
