// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/generosity/internal/adapters/repository"
	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/pkg/logger"
)

// Recorder accepts actions for asynchronous processing.
type Recorder interface {
	Record(ctx context.Context, req service.ActionRequest) (string, bool, error)
}

// Evaluator computes metrics over recorded history.
type Evaluator interface {
	Evaluate(ctx context.Context, req service.EvaluationRequest) ([]model.Metric, error)
	Definitions() map[string]engine.Definition
}

// Catalog lists registered action types.
type Catalog interface {
	ActionTypes(category string) []registry.Entry
}

// Leaderboard exposes ranking reads.
type Leaderboard interface {
	TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, actorID string) (model.LeaderboardEntry, error)
}

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Recorder
	Evaluator
	Catalog
	Leaderboard
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	actionsHandler     *ActionsHandler
	evaluationsHandler *EvaluationsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := options{maxLimit: defaultMaxLeaderboardLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		actionsHandler:     NewActionsHandler(deps, deps, cfg.logger),
		evaluationsHandler: NewEvaluationsHandler(deps, cfg.logger),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit, cfg.logger),
		rankHandler:        NewRankHandler(deps, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /actions", MetricsMiddleware(s.actionsHandler.HandlePostAction, "actions"))
	mux.HandleFunc("GET /action-types", MetricsMiddleware(s.actionsHandler.HandleListTypes, "action_types"))
	mux.HandleFunc("GET /evaluations", MetricsMiddleware(s.evaluationsHandler.HandleEvaluate, "evaluations"))
	mux.HandleFunc("GET /metric-definitions", MetricsMiddleware(s.evaluationsHandler.HandleDefinitions, "metric_definitions"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{actor_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing the status so an unencodable body
// surfaces as a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "response encoding failed"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps domain sentinels onto a status code and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrShuttingDown), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes the mapped error and logs server-side failures.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}
