package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/okian/generosity/internal/domain/model"
)

// MemoryStore keeps actions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]struct{}
	actions []model.Action
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]struct{})}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: stored by value
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ActionID == "" {
		return fmt.Errorf("%w: empty action id", ErrInvalidAction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.byID[a.ActionID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, a.ActionID)
	}

	a.Metadata = maps.Clone(a.Metadata)
	// Keep actions sorted by timestamp; equal timestamps stay in arrival order.
	i := sort.Search(len(s.actions), func(i int) bool {
		return s.actions[i].Timestamp.After(a.Timestamp)
	})
	s.actions = append(s.actions, model.Action{})
	copy(s.actions[i+1:], s.actions[i:])
	s.actions[i] = a
	s.byID[a.ActionID] = struct{}{}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, q Query) ([]model.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.Action, 0)
	for i := range s.actions {
		if !q.Matches(&s.actions[i]) {
			continue
		}
		a := s.actions[i]
		a.Metadata = maps.Clone(a.Metadata)
		out = append(out, a)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actions), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
