// Package storage defines where recorded actions live once accepted.
package storage

import (
	"context"
	"time"

	"github.com/okian/generosity/internal/domain/model"
)

// Store persists recorded actions. Implementations are safe for concurrent use.
type Store interface {
	// Append persists a. It returns ErrDuplicate when the action id is already stored.
	Append(ctx context.Context, a model.Action) error

	// List returns the actions matching q ordered by timestamp, oldest first.
	List(ctx context.Context, q Query) ([]model.Action, error)

	// Count returns the number of stored actions.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Query narrows List. Zero-valued fields do not filter.
type Query struct {
	Context string
	ActorID string
	Since   time.Time
	Until   time.Time // exclusive
	Limit   int
}

// Matches reports whether a passes the non-zero fields of q.
func (q Query) Matches(a *model.Action) bool {
	if q.Context != "" && a.Context != q.Context {
		return false
	}
	if q.ActorID != "" && a.ActorID != q.ActorID {
		return false
	}
	if !q.Since.IsZero() && a.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !a.Timestamp.Before(q.Until) {
		return false
	}
	return true
}
