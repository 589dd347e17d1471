package engine

// Kind names a calculation a Definition performs.
type Kind string

// Supported calculation kinds.
const (
	KindCount       Kind = "count"
	KindAverage     Kind = "average"
	KindRatio       Kind = "ratio"
	KindUniqueCount Kind = "unique_count"
	// KindConsistency is reserved: it has no algorithm yet and always yields 0.
	KindConsistency Kind = "consistency"
)

// Definition declares how one statistic is derived from a set of actions.
// It is static configuration, loaded once.
type Definition struct {
	Name        string `koanf:"name" json:"name"`
	Description string `koanf:"description" json:"description,omitempty"`
	Unit        string `koanf:"unit" json:"unit,omitempty"`
	Calculation Kind   `koanf:"calculation" json:"calculation"`

	// Filter selects actions for count, average and unique_count.
	Filter map[string]any `koanf:"filter" json:"filter,omitempty"`

	// Field is the value averaged or counted distinctly.
	Field string `koanf:"field" json:"field,omitempty"`

	// NumeratorFilter and DenominatorSource drive ratio.
	NumeratorFilter   map[string]any `koanf:"numerator_filter" json:"numerator_filter,omitempty"`
	DenominatorSource string         `koanf:"denominator_source" json:"denominator_source,omitempty"`

	// TimeWindow is carried for consistency and not interpreted.
	TimeWindow string `koanf:"time_window" json:"time_window,omitempty"`
}

// DefaultDefinitions returns the stock metric set used when none is configured.
func DefaultDefinitions() map[string]Definition {
	return map[string]Definition{
		"total_generous_actions": {
			Name:        "Total Generous Actions",
			Description: "Number of generous actions recorded",
			Unit:        "actions",
			Calculation: KindCount,
		},
		"mentoring_sessions": {
			Name:        "Mentoring Sessions",
			Description: "Number of mentoring actions",
			Unit:        "sessions",
			Calculation: KindCount,
			Filter:      map[string]any{"action_type": "mentoring"},
		},
		"knowledge_shared": {
			Name:        "Knowledge Shared",
			Description: "Actions whose category is knowledge sharing",
			Unit:        "actions",
			Calculation: KindCount,
			Filter:      map[string]any{"category": "knowledge_sharing"},
		},
		"average_impact": {
			Name:        "Average Impact",
			Description: "Mean impact score across actions",
			Unit:        "points",
			Calculation: KindAverage,
			Field:       "impact_score",
		},
		"unique_recipients": {
			Name:        "Unique Recipients",
			Description: "Distinct people who received help",
			Unit:        "people",
			Calculation: KindUniqueCount,
			Field:       "recipient_id",
		},
		"unique_helpers": {
			Name:        "Unique Helpers",
			Description: "Distinct people who helped someone",
			Unit:        "people",
			Calculation: KindUniqueCount,
			Field:       "actor_id",
		},
		"help_response_rate": {
			Name:              "Help Response Rate",
			Description:       "Help given as a share of help requested",
			Unit:              "%",
			Calculation:       KindRatio,
			NumeratorFilter:   map[string]any{"action_type": "helping_others"},
			DenominatorSource: "help_requests_received",
		},
		"helping_consistency": {
			Name:        "Helping Consistency",
			Description: "How regularly people help over time",
			Unit:        "score",
			Calculation: KindConsistency,
			TimeWindow:  "30d",
		},
	}
}
