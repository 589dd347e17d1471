// Package engine turns action collections into named metrics according to
// declarative definitions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/logger"
	"github.com/okian/generosity/pkg/metrics"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report skipped metrics.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source stamped on produced metrics.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine evaluates metric definitions. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	logger logger.Logger
	now    func() time.Time
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	return e
}

// EvaluateAll computes every definition over actions and returns one metric per
// definition that succeeded, ordered by ascending metric id. Failing definitions
// are logged and left out; the batch itself never fails.
func (e *Engine) EvaluateAll(ctx context.Context, actions []model.Action, values map[string]any, defs map[string]Definition) []model.Metric {
	start := time.Now()
	defer func() {
		metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	snapshot := snapshotValues(values)

	out := make([]model.Metric, 0, len(defs))
	for _, id := range slices.Sorted(maps.Keys(defs)) {
		def := defs[id]
		m, err := e.evaluate(id, def, actions, snapshot)
		if err != nil {
			metrics.RecordEvaluationFailure(string(def.Calculation), failureReason(err))
			e.logger.Warn(ctx, "metric evaluation failed; skipping",
				logger.String("metric_id", id),
				logger.String("calculation", string(def.Calculation)),
				logger.Error(err))
			continue
		}
		metrics.RecordEvaluation(id, string(def.Calculation), m.Value)
		out = append(out, m)
	}
	return out
}

// Evaluate computes a single definition. Unlike EvaluateAll it reports the failure.
func (e *Engine) Evaluate(id string, def Definition, actions []model.Action, values map[string]any) (model.Metric, error) {
	snapshot := snapshotValues(values)
	return e.evaluate(id, def, actions, snapshot)
}

func (e *Engine) evaluate(id string, def Definition, actions []model.Action, values map[string]any) (m model.Metric, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrEvaluationPanic, id, r)
		}
	}()

	v, err := compute(def, actions, values)
	if err != nil {
		return model.Metric{}, fmt.Errorf("metric %q: %w", id, err)
	}

	name := def.Name
	if name == "" {
		name = id
	}
	return model.Metric{
		ID:          id,
		Name:        name,
		Description: def.Description,
		Value:       v,
		Unit:        def.Unit,
		Timestamp:   e.now().UTC(),
		Context:     maps.Clone(values),
	}, nil
}

// snapshotValues copies the caller's context values, dropping NaN and infinite
// numbers so every produced metric stays JSON-encodable.
func snapshotValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			continue
		}
		if f, ok := v.(float32); ok && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
			continue
		}
		out[k] = v
	}
	return out
}

func compute(def Definition, actions []model.Action, values map[string]any) (float64, error) {
	var (
		v   float64
		err error
	)
	switch def.Calculation {
	case KindCount:
		v = float64(count(actions, def.Filter))
	case KindAverage:
		v, err = average(actions, def.Filter, def.Field)
	case KindRatio:
		v, err = ratio(actions, def.NumeratorFilter, values, def.DenominatorSource)
	case KindUniqueCount:
		v, err = uniqueCount(actions, def.Filter, def.Field)
	case KindConsistency:
		v = 0
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCalculationKind, def.Calculation)
	}
	if errors.Is(err, ErrMissingField) || errors.Is(err, ErrInvalidDenominator) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return v, nil
}

func count(actions []model.Action, filter map[string]any) int {
	n := 0
	for i := range actions {
		if Matches(&actions[i], filter) {
			n++
		}
	}
	return n
}

// average is the mean of field over matching actions where field is present and
// non-null. No contributing action yields ErrMissingField.
func average(actions []model.Action, filter map[string]any, field string) (float64, error) {
	if field == "" {
		return 0, ErrMissingField
	}
	var (
		sum float64
		n   int
	)
	for i := range actions {
		a := &actions[i]
		if !Matches(a, filter) {
			continue
		}
		raw, ok := FieldValue(a, field)
		if !ok || raw == nil {
			continue
		}
		f, ok := model.ToFloat(raw)
		if !ok {
			return 0, fmt.Errorf("%w: field %q holds %T", ErrBadType, field, raw)
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, ErrMissingField
	}
	return sum / float64(n), nil
}

// ratio is count(numerator filter) / values[source] × 100.
func ratio(actions []model.Action, numerator map[string]any, values map[string]any, source string) (float64, error) {
	raw, ok := values[source]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %q not in context", ErrInvalidDenominator, source)
	}
	denom, ok := model.ToFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: denominator %q holds %T", ErrBadType, source, raw)
	}
	if denom <= 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0, fmt.Errorf("%w: %q is %v", ErrInvalidDenominator, source, denom)
	}
	return float64(count(actions, numerator)) / denom * 100, nil
}

// uniqueCount is the number of distinct non-null field values over matching actions.
func uniqueCount(actions []model.Action, filter map[string]any, field string) (float64, error) {
	if field == "" {
		return 0, ErrMissingField
	}
	seen := make(map[string]struct{})
	for i := range actions {
		a := &actions[i]
		if !Matches(a, filter) {
			continue
		}
		raw, ok := FieldValue(a, field)
		if !ok || raw == nil {
			continue
		}
		seen[distinctKey(raw)] = struct{}{}
	}
	return float64(len(seen)), nil
}
