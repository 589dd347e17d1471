// Package queue buffers accepted actions between the HTTP handlers and the
// worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/metrics"
)

const defaultCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a without blocking. It returns ErrFull when at capacity and
	// ErrClosed after Close.
	Enqueue(ctx context.Context, a model.Action) error

	// Dequeue returns the channel workers read from. It is closed, after the
	// remaining actions drain, once the queue is closed.
	Dequeue() <-chan model.Action

	// Len returns the number of queued actions.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting actions.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	actions  chan model.Action
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.actions = make(chan model.Action, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: sent by value over the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.actions <- a:
		metrics.UpdateQueueSize(len(q.actions))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue() <-chan model.Action {
	return q.actions
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	n := len(q.actions)
	metrics.UpdateQueueSize(n)
	return n
}

// Cap implements Queue.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close implements Queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.actions)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
