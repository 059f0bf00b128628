package api

import (
	"maps"
	"net/http"
	"strings"
)

// StatsProvider reports service statistics. A started service includes a
// "boards" map of entry counts per mode.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler over provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the provider's snapshot. With ?mode=<m> the boards
// map is narrowed to that mode; a mode with no count is omitted.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := maps.Clone(h.provider.GetStats())
	if stats == nil {
		stats = map[string]interface{}{}
	}
	if mode := strings.TrimSpace(r.URL.Query().Get("mode")); mode != "" {
		narrowed := map[string]int64{}
		if boards, ok := stats["boards"].(map[string]int64); ok {
			if n, found := boards[mode]; found {
				narrowed[mode] = n
			}
		}
		stats["boards"] = narrowed
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
