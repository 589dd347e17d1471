// Package scoring computes the impact score of a generosity action.
package scoring

import (
	"context"
	"fmt"

	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/internal/domain/registry"
)

const defaultBaseScore = 1.0

// Option applies a configuration option to the RegistryScorer.
type Option func(*RegistryScorer)

// WithDefaultBaseScore sets the base score used for unregistered action types.
func WithDefaultBaseScore(score float64) Option {
	return func(s *RegistryScorer) {
		if score > 0 {
			s.defaultBase = score
		}
	}
}

// Input abstracts the action fields needed for scoring.
type Input struct {
	ActionType string
	Metadata   map[string]any
}

// Result contains the computed score for an action.
type Result struct {
	BaseScore   float64
	ImpactScore float64
	Registered  bool
	// Category is the registry category, empty for unregistered types.
	Category string
}

// Scorer computes an impact score from an input.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Lookup is the part of the registry the scorer reads.
type Lookup interface {
	Get(actionType string) (registry.Entry, bool)
}

// RegistryScorer implements Scorer using registry base scores.
type RegistryScorer struct {
	lookup      Lookup
	defaultBase float64
}

// NewRegistryScorer creates a scorer reading base scores from lookup.
func NewRegistryScorer(lookup Lookup, opts ...Option) *RegistryScorer {
	s := &RegistryScorer{
		lookup:      lookup,
		defaultBase: defaultBaseScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the impact score for the given input.
func (s *RegistryScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	res := Result{BaseScore: s.defaultBase}
	if s.lookup != nil {
		if e, ok := s.lookup.Get(in.ActionType); ok {
			res.BaseScore, res.Registered, res.Category = e.BaseScore, true, e.Category
		}
	}
	res.ImpactScore = model.ImpactScore(res.BaseScore, in.Metadata)
	return res, nil
}
