package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/topboard/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests by serving the service's
// Prometheus registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// ReadyDependencies reports whether the backing store answers.
type ReadyDependencies interface {
	Ping(ctx context.Context) error
}

// ReadyHandler handles readiness requests.
type ReadyHandler struct {
	deps ReadyDependencies
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(deps ReadyDependencies) *ReadyHandler {
	return &ReadyHandler{deps: deps}
}

// HandleReady handles GET /readyz requests.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
