// Package worker scores queued actions and commits them to storage and the leaderboard.
package worker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/internal/domain/scoring"
	"github.com/okian/generosity/pkg/logger"
	"github.com/okian/generosity/pkg/metrics"
)

// Source is where workers read actions from.
type Source interface {
	Dequeue() <-chan model.Action
}

// Appender persists scored actions.
type Appender interface {
	Append(ctx context.Context, a model.Action) error
}

// Leaderboard accumulates impact per actor.
type Leaderboard interface {
	Add(ctx context.Context, actorID string, delta float64) (float64, error)
}

// Stats counts what the workers have done since start.
type Stats struct {
	Processed  int64
	Duplicates int64
	Failed     int64
}

type counters struct {
	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// InMemoryWorker processes actions one at a time.
type InMemoryWorker struct {
	source Source
	scorer scoring.Scorer
	store  Appender
	board  Leaderboard
	name   string
	stats  *counters
	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(source Source, scorer scoring.Scorer, store Appender, board Leaderboard, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source: source,
		scorer: scorer,
		store:  store,
		board:  board,
		name:   "worker",
		stats:  &counters{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes actions until the source closes or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, a); err != nil {
				w.logger.Error(ctx, "error processing action",
					logger.String("action_id", a.ActionID),
					logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process scores a, stores it and credits the actor. A duplicate id is not an error
// and does not touch the leaderboard.
func (w *InMemoryWorker) process(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: received by value from the channel
	res, err := w.scorer.Score(ctx, scoring.Input{ActionType: a.ActionType, Metadata: a.Metadata})
	if err != nil {
		w.fail("score")
		return fmt.Errorf("score action %s: %w", a.ActionID, err)
	}
	a.ImpactScore = res.ImpactScore
	if _, set := a.Metadata[model.MetadataCategory]; !set && res.Category != "" {
		a.Metadata = maps.Clone(a.Metadata)
		if a.Metadata == nil {
			a.Metadata = map[string]any{}
		}
		a.Metadata[model.MetadataCategory] = res.Category
	}

	if err := w.store.Append(ctx, a); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			w.stats.duplicates.Add(1)
			metrics.RecordActionDuplicate()
			w.logger.Debug(ctx, "duplicate action ignored", logger.String("action_id", a.ActionID))
			return nil
		}
		w.fail("store")
		return fmt.Errorf("store action %s: %w", a.ActionID, err)
	}

	if _, err := w.board.Add(ctx, a.ActorID, a.ImpactScore); err != nil {
		w.fail("leaderboard")
		return fmt.Errorf("leaderboard update for %s: %w", a.ActorID, err)
	}

	w.stats.processed.Add(1)
	metrics.RecordActionRecorded(a.ImpactScore)
	return nil
}

func (w *InMemoryWorker) fail(stage string) {
	w.stats.failed.Add(1)
	metrics.RecordActionFailed(stage)
}

// Pool runs a fixed set of workers over one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	stats   *counters
	logger  logger.Logger
	started atomic.Bool
	wg      sync.WaitGroup
}

// NewPool creates a pool of workerCount workers. workerCount < 1 uses one per CPU.
func NewPool(workerCount int, source Source, scorer scoring.Scorer, store Appender, board Leaderboard) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		stats:   &counters{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(source, scorer, store, board,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(p.stats))
	}
	return p
}

// Start launches every worker. Calling it twice has no effect.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	metrics.UpdateWorkersActive(len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the source if it can be closed and waits for the workers to
// drain it, or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		metrics.UpdateWorkersActive(0)
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Stats returns cumulative counters across all workers.
func (p *Pool) Stats() Stats {
	return Stats{
		Processed:  p.stats.processed.Load(),
		Duplicates: p.stats.duplicates.Load(),
		Failed:     p.stats.failed.Load(),
	}
}
