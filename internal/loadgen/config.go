// Package loadgen drives a running generosity service with synthetic actions
// and checks that what it reports afterwards adds up.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumActions   int           // Number of actions to submit
	NumActors    int           // Size of the actor pool actions are drawn from
	DuplicatePct int           // Percentage of submissions that resend an earlier action
	TopN         int           // Number of leaderboard entries to fetch
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	DrainTimeout time.Duration // How long to wait for the queue to drain
	Seed         uint64        // Seed for the action generator
	OutputFile   string        // Optional JSON dump of the submitted actions
}

// Action is the POST /actions payload.
type Action struct {
	ActionID    string         `json:"action_id"`
	ActorID     string         `json:"actor_id"`
	RecipientID *string        `json:"recipient_id,omitempty"`
	ActionType  string         `json:"action_type"`
	Context     string         `json:"context"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Entry is a leaderboard row.
type Entry struct {
	Rank    int     `json:"rank"`
	ActorID string  `json:"actor_id"`
	Score   float64 `json:"score"`
}

// Metric is one evaluated metric.
type Metric struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ServiceStats is the subset of GET /stats the run relies on.
type ServiceStats struct {
	QueueLength int   `json:"queue_length"`
	Processed   int64 `json:"processed"`
	Duplicates  int64 `json:"duplicates"`
	Failed      int64 `json:"failed"`
}

// Stats summarizes a load run.
type Stats struct {
	Submitted   int
	Accepted    int
	Duplicate   int
	Rejected    int
	Failed      int
	Metrics     map[string]float64
	Leaderboard []Entry
	StartTime   time.Time
	Duration    time.Duration
}
