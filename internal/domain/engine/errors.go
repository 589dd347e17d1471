package engine

import "errors"

// Sentinel kinds for metric evaluation errors.
//
// ErrUnknownCalculationKind, ErrBadType, ErrNonFinite and ErrEvaluationPanic
// skip the metric.
// ErrMissingField and ErrInvalidDenominator are absorbed and yield 0.
var (
	ErrUnknownCalculationKind = errors.New("unknown calculation kind")
	ErrMissingField           = errors.New("missing field")
	ErrInvalidDenominator     = errors.New("invalid denominator")
	ErrBadType                = errors.New("bad value type")
	ErrNonFinite              = errors.New("non-finite metric value")
	ErrEvaluationPanic        = errors.New("metric evaluation panicked")
)

// failureReason maps an evaluation error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCalculationKind):
		return "unknown_calculation"
	case errors.Is(err, ErrBadType):
		return "bad_type"
	case errors.Is(err, ErrNonFinite):
		return "non_finite"
	case errors.Is(err, ErrEvaluationPanic):
		return "panic"
	default:
		return "other"
	}
}
