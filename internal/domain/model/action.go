// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// Impact score bounds.
const (
	MaxImpactScore = 10.0
	MinImpactScore = 0.0
)

// Metadata keys read when computing the impact score.
const (
	MultiplierUrgency    = "urgency"
	MultiplierComplexity = "complexity"
	MultiplierReach      = "reach"
	MultiplierEffort     = "effort"

	// MetadataCategory overrides the registry category in metric filters.
	MetadataCategory = "category"
)

// ImpactMultipliers lists the metadata keys averaged into the impact score.
var ImpactMultipliers = []string{MultiplierUrgency, MultiplierComplexity, MultiplierReach, MultiplierEffort} //nolint:gochecknoglobals // fixed key set

// Action is one recorded generous event. Treat it as read-only once built.
type Action struct {
	ActionID    string         `json:"action_id"`
	ActorID     string         `json:"actor_id"`
	RecipientID *string        `json:"recipient_id,omitempty"`
	ActionType  string         `json:"action_type"`
	Context     string         `json:"context"`
	Timestamp   time.Time      `json:"timestamp"`
	ImpactScore float64        `json:"impact_score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Recipient returns the recipient id and whether one is set.
func (a *Action) Recipient() (string, bool) {
	if a.RecipientID == nil {
		return "", false
	}
	return *a.RecipientID, true
}

// ImpactScore computes base × mean(urgency, complexity, reach, effort), clamped to [0, 10].
// Missing or non-numeric multipliers count as 1.0.
func ImpactScore(baseScore float64, metadata map[string]any) float64 {
	var sum float64
	for _, key := range ImpactMultipliers {
		m := 1.0
		if v, ok := metadata[key]; ok {
			if f, ok := ToFloat(v); ok {
				m = f
			}
		}
		sum += m
	}
	score := baseScore * (sum / float64(len(ImpactMultipliers)))
	if math.IsNaN(score) {
		return MinImpactScore
	}
	return math.Max(MinImpactScore, math.Min(MaxImpactScore, score))
}

// ToFloat converts the numeric kinds produced by JSON, YAML and SQL decoders.
// Strings are not numbers here.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
