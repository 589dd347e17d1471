// Package registry holds the catalog of known action types and their static metadata.
//
// Register overwrites silently: a later registration of the same action type replaces
// the earlier one but keeps its original position in the listing order. Adapters rely
// on this to layer platform catalogs on top of each other.
package registry

import (
	"maps"
	"sync"
	"time"
)

// Entry is the static metadata of one action type.
type Entry struct {
	ActionType      string         `json:"action_type"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	BaseScore       float64        `json:"base_score"`
	Category        string         `json:"category"`
	ValidationRules map[string]any `json:"validation_rules,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry maps action-type identifiers to their metadata.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	now     func() time.Time
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts or replaces the entry for actionType. Rules may be nil.
func (r *Registry) Register(actionType, name, description string, baseScore float64, category string, rules map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[actionType]; !exists {
		r.order = append(r.order, actionType)
	}
	r.entries[actionType] = Entry{
		ActionType:      actionType,
		Name:            name,
		Description:     description,
		BaseScore:       baseScore,
		Category:        category,
		ValidationRules: maps.Clone(rules),
		CreatedAt:       r.now(),
	}
}

// Get returns the entry for actionType and whether it exists.
func (r *Registry) Get(actionType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[actionType]
	return e, ok
}

// ListByCategory returns entries whose category equals category, in registration order.
func (r *Registry) ListByCategory(category string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0)
	for _, t := range r.order {
		if e := r.entries[t]; e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in registration order.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.entries[t])
	}
	return out
}

// Len returns the number of registered action types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
