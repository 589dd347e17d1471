// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/generosity/internal/adapters/mq/queue"
	"github.com/okian/generosity/internal/adapters/mq/worker"
	"github.com/okian/generosity/internal/adapters/repository"
	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/domain/dedupe"
	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/internal/domain/scoring"
	"github.com/okian/generosity/pkg/logger"
	"github.com/okian/generosity/pkg/metrics"
)

// ActionRequest is an action as submitted by a client, before scoring.
type ActionRequest struct {
	ActionID    string         `json:"action_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	RecipientID *string        `json:"recipient_id,omitempty"`
	ActionType  string         `json:"action_type"`
	Context     string         `json:"context"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EvaluationRequest scopes an evaluation to a slice of recorded history.
type EvaluationRequest struct {
	Context string
	ActorID string
	Since   time.Time
	Until   time.Time
	// Values override the configured context defaults.
	Values map[string]any
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started           bool  `json:"started"`
	Workers           int   `json:"workers"`
	QueueLength       int   `json:"queue_length"`
	QueueCapacity     int   `json:"queue_capacity"`
	DedupeSize        int   `json:"dedupe_size"`
	RegisteredTypes   int   `json:"registered_types"`
	MetricDefinitions int   `json:"metric_definitions"`
	ActionsStored     int   `json:"actions_stored"`
	LeaderboardActors int   `json:"leaderboard_actors"`
	Processed         int64 `json:"processed"`
	Duplicates        int64 `json:"duplicates"`
	Failed            int64 `json:"failed"`
}

// Service records generosity actions and evaluates metrics over them.
type Service struct {
	mu sync.RWMutex

	registry    *registry.Registry
	store       storage.Store
	leaderboard repository.Store
	deduper     dedupe.Deduper
	queue       *queue.InMemoryQueue
	pool        *worker.Pool
	engine      *engine.Engine

	workerCount      int
	queueSize        int
	dedupeSize       int
	defaultBaseScore float64
	definitions      map[string]engine.Definition
	contextDefaults  map[string]any

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a Service. Call Start before use.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        10000,
		dedupeSize:       50000,
		defaultBaseScore: 1.0,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the recording pipeline and launches the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting generosity service...")

	if s.registry == nil {
		s.registry = registry.New()
		if err := registry.RegisterDefaults(s.registry); err != nil {
			return fmt.Errorf("register default action types: %w", err)
		}
	}
	if s.definitions == nil {
		s.definitions = engine.DefaultDefinitions()
	}
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}
	if s.leaderboard == nil {
		s.leaderboard = repository.NewTreapStore()
	}

	s.engine = engine.New(engine.WithLogger(s.logger.Named("engine")))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	scorer := scoring.NewRegistryScorer(s.registry, scoring.WithDefaultBaseScore(s.defaultBaseScore))
	s.pool = worker.NewPool(s.workerCount, s.queue, scorer, s.store, s.leaderboard)
	// Workers outlive the request that started the service; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	metrics.UpdateRegistrySize(s.registry.Len())
	s.started = true
	s.logger.Info(ctx, "generosity service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("actionTypes", s.registry.Len()),
		logger.Int("metrics", len(s.definitions)),
	)
	return nil
}

// Stop closes the queue, waits for queued actions to be committed and releases
// the store and leaderboard. If ctx expires first the backends are left open for
// the remaining workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping generosity service...")
	s.started = false

	if err := s.pool.Shutdown(ctx); err != nil {
		// Workers are still committing; the backends stay open so they can finish.
		s.logger.Warn(ctx, "drain timed out; leaving store and leaderboard open", logger.Error(err))
		return fmt.Errorf("drain workers: %w", err)
	}

	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := s.leaderboard.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close leaderboard: %w", err))
	}

	s.logger.Info(ctx, "generosity service stopped")
	return errors.Join(errs...)
}

// Record validates req and queues it for scoring. It returns the action id and
// whether the id had already been submitted.
func (s *Service) Record(ctx context.Context, req ActionRequest) (string, bool, error) { //nolint:gocritic // hugeParam: request value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	a, err := s.buildAction(req)
	if err != nil {
		return "", false, err
	}

	if s.deduper.SeenAndRecord(ctx, a.ActionID) {
		metrics.RecordActionDuplicate()
		s.logger.Debug(ctx, "duplicate action detected, skipping", logger.String("action_id", a.ActionID))
		return a.ActionID, true, nil
	}

	if err := s.queue.Enqueue(ctx, a); err != nil {
		// Let the client retry with the same id.
		s.deduper.Unrecord(ctx, a.ActionID)
		switch {
		case errors.Is(err, queue.ErrFull):
			return "", false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return "", false, fmt.Errorf("%w: %w", ErrShuttingDown, err)
		}
		return "", false, fmt.Errorf("enqueue action: %w", err)
	}
	return a.ActionID, false, nil
}

func (s *Service) buildAction(req ActionRequest) (model.Action, error) { //nolint:gocritic // hugeParam: request value
	var missing []string
	if strings.TrimSpace(req.ActorID) == "" {
		missing = append(missing, "actor_id")
	}
	if strings.TrimSpace(req.ActionType) == "" {
		missing = append(missing, "action_type")
	}
	if strings.TrimSpace(req.Context) == "" {
		missing = append(missing, "context")
	}
	if len(missing) > 0 {
		return model.Action{}, fmt.Errorf("%w: missing %s", ErrInvalidAction, strings.Join(missing, ", "))
	}
	if req.RecipientID != nil && strings.TrimSpace(*req.RecipientID) == "" {
		req.RecipientID = nil
	}

	id := strings.TrimSpace(req.ActionID)
	if id == "" {
		id = uuid.NewString()
	}
	ts := s.now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = req.Timestamp.UTC()
	}

	return model.Action{
		ActionID:    id,
		ActorID:     req.ActorID,
		RecipientID: req.RecipientID,
		ActionType:  req.ActionType,
		Context:     req.Context,
		Timestamp:   ts,
		Metadata:    maps.Clone(req.Metadata),
	}, nil
}

// Evaluate computes every configured metric over the recorded actions in scope.
func (s *Service) Evaluate(ctx context.Context, req EvaluationRequest) ([]model.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	actions, err := s.store.List(ctx, storage.Query{
		Context: req.Context,
		ActorID: req.ActorID,
		Since:   req.Since,
		Until:   req.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	values := maps.Clone(s.contextDefaults)
	if values == nil {
		values = make(map[string]any, len(req.Values))
	}
	maps.Copy(values, req.Values)

	return s.engine.EvaluateAll(ctx, actions, values, s.definitions), nil
}

// Definitions returns a copy of the configured metric definitions.
func (s *Service) Definitions() map[string]engine.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.definitions)
}

// ActionTypes lists registered action types, all of them when category is empty.
func (s *Service) ActionTypes(category string) []registry.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.registry == nil {
		return nil
	}
	if category == "" {
		return s.registry.All()
	}
	return s.registry.ListByCategory(category)
}

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.leaderboard.TopN(ctx, n)
}

// Rank returns the leaderboard position of actorID.
func (s *Service) Rank(ctx context.Context, actorID string) (model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.LeaderboardEntry{}, ErrNotStarted
	}
	return s.leaderboard.Rank(ctx, actorID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:           s.started,
		Workers:           s.workerCount,
		QueueCapacity:     s.queueSize,
		MetricDefinitions: len(s.definitions),
	}
	if s.registry != nil {
		st.RegisteredTypes = s.registry.Len()
	}
	if !s.started {
		return st
	}

	st.Workers = s.pool.Size()
	st.QueueLength = s.queue.Len()
	st.DedupeSize = s.deduper.Size()
	if n, err := s.store.Count(ctx); err == nil {
		st.ActionsStored = n
	} else {
		s.logger.Warn(ctx, "count stored actions failed", logger.Error(err))
	}
	if n, err := s.leaderboard.Count(ctx); err == nil {
		st.LeaderboardActors = n
		metrics.UpdateLeaderboardActors(n)
	} else {
		s.logger.Warn(ctx, "count leaderboard actors failed", logger.Error(err))
	}
	ws := s.pool.Stats()
	st.Processed, st.Duplicates, st.Failed = ws.Processed, ws.Duplicates, ws.Failed
	return st
}
