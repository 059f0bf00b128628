// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/topboard/internal/domain/entry"
	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RankingsDependencies
	ScoresDependencies
	ResetDependencies
	ReadyDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	readyHandler    *ReadyHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	scoresHandler   *ScoresHandler
	resetHandler    *ResetHandler

	adminSecret string
	corsOrigin  string
	limiter     *IPRateLimiter
	logger      logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		corsOrigin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.readyHandler = NewReadyHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.rankingsHandler = NewRankingsHandler(deps, s.logger)
	s.scoresHandler = NewScoresHandler(deps, s.logger)
	s.resetHandler = NewResetHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle("/healthz", s.wrap(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/readyz", s.wrap(s.readyHandler.HandleReady, "readyz"))
	mux.Handle("/stats", s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/rankings", s.wrap(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.Handle("/scores", s.wrap(s.scoresRouter(), "scores"))
	mux.Handle("/admin/reset", s.wrap(
		RequireBearer(s.adminSecret, s.resetHandler.HandleReset), "admin_reset"))
}

// scoresRouter guards the privileged verbs and limits submissions.
func (s *Server) scoresRouter() http.HandlerFunc {
	submit := RateLimit(s.limiter, s.scoresHandler.HandleSubmit)
	remove := RequireBearer(s.adminSecret, s.scoresHandler.HandleDelete)
	edit := RequireBearer(s.adminSecret, s.scoresHandler.HandleEdit)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			submit(w, r)
		case http.MethodDelete:
			remove(w, r)
		case http.MethodPut:
			edit(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

// wrap applies the middleware shared by every route.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.Handler {
	return RequestID(CORS(s.corsOrigin, MetricsMiddleware(h, endpoint)))
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rankingRow is one board line. Legacy entries omit the optional fields.
type rankingRow struct {
	Rank       int      `json:"rank"`
	Name       string   `json:"name"`
	Score      *int64   `json:"score,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Efficiency int64    `json:"efficiency"`
	Date       string   `json:"date,omitempty"`
}

func toRow(rank int, e entry.Entry) rankingRow {
	row := rankingRow{Rank: rank, Name: e.Player(), Efficiency: e.Ranking()}
	if s, ok := e.(entry.Structured); ok {
		row.Score = &s.Score
		row.Accuracy = &s.Accuracy
		row.Date = s.Date
	}
	return row
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError maps engine failures onto status codes. Store failures
// get a generic message so endpoints and credentials never reach clients.
func writeEngineError(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ranking.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, ranking.ErrNotAuthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", nil)
	case ranking.IsStoreError(err):
		l.Error(ctx, "store failure", logger.String("request_id", RequestIDFrom(ctx)), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", nil)
	default:
		l.Error(ctx, "request failed", logger.String("request_id", RequestIDFrom(ctx)), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// decodeBody reads a JSON object of at most maxBodyBytes, keeping numbers
// as json.Number.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// writeBodyError answers a body decodeBody refused.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", nil)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}
