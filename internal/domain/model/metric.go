package model

import "time"

// Metric is one computed generosity statistic. It is built fresh per evaluation.
type Metric struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Value       float64        `json:"value"`
	Unit        string         `json:"unit,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context,omitempty"`
}

// LeaderboardEntry is one ranked actor on the generosity leaderboard.
type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	ActorID string  `json:"actor_id"`
	Score   float64 `json:"score"`
}
