package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/okian/generosity/internal/domain/model"
)

// Structural field names addressable from filters and definitions.
const (
	FieldActionID    = "action_id"
	FieldActorID     = "actor_id"
	FieldRecipientID = "recipient_id"
	FieldActionType  = "action_type"
	FieldContext     = "context"
	FieldTimestamp   = "timestamp"
	FieldImpactScore = "impact_score"
)

// Matches reports whether a satisfies every pair in filter. An empty filter matches.
//
// "category" is always read from the action metadata, never from the registry, so a
// per-action override wins. Other keys resolve to a structural field first and to a
// metadata entry second; a key that resolves to neither does not match.
func Matches(a *model.Action, filter map[string]any) bool {
	for key, want := range filter {
		var (
			got any
			ok  bool
		)
		if key == model.MetadataCategory {
			got, ok = a.Metadata[key]
		} else {
			got, ok = FieldValue(a, key)
		}
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// FieldValue resolves key against the structural fields of a, then its metadata.
// An absent recipient resolves to (nil, true).
func FieldValue(a *model.Action, key string) (any, bool) {
	switch key {
	case FieldActionID:
		return a.ActionID, true
	case FieldActorID:
		return a.ActorID, true
	case FieldRecipientID:
		if r, ok := a.Recipient(); ok {
			return r, true
		}
		return nil, true
	case FieldActionType:
		return a.ActionType, true
	case FieldContext:
		return a.Context, true
	case FieldTimestamp:
		return a.Timestamp, true
	case FieldImpactScore:
		return a.ImpactScore, true
	}
	v, ok := a.Metadata[key]
	return v, ok
}

// valuesEqual compares numbers by value across int/float kinds and everything else by equality.
func valuesEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	if g, ok := model.ToFloat(got); ok {
		w, ok := model.ToFloat(want)
		return ok && g == w
	}
	if gt, ok := got.(time.Time); ok {
		switch w := want.(type) {
		case time.Time:
			return gt.Equal(w)
		case string:
			wt, err := time.Parse(time.RFC3339, w)
			return err == nil && gt.Equal(wt)
		}
		return false
	}
	return reflect.DeepEqual(got, want)
}

// distinctKey builds a stable set key so unhashable and mixed-kind values can be counted.
func distinctKey(v any) string {
	if f, ok := model.ToFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
