// Package repository keeps the generosity leaderboard: each actor's accumulated
// impact score and their standing against everyone else.
package repository

import (
	"context"

	"github.com/okian/generosity/internal/domain/model"
)

// Store provides read/write access to the leaderboard.
//
// Ordering is score DESC then actor id ASC. Ranks use competition ranking:
// actors with equal scores share a rank and the next distinct score skips ahead
// (1, 1, 3).
type Store interface {
	// Add credits delta to actorID and returns the new total.
	Add(ctx context.Context, actorID string, delta float64) (float64, error)

	// Rank returns the current rank and score for an actor.
	// Returns ErrNotFound if the actor is unknown.
	Rank(ctx context.Context, actorID string) (model.LeaderboardEntry, error)

	// TopN returns the top n entries. n < 1 returns ErrInvalidLimit.
	TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error)

	// Count returns the number of actors on the leaderboard.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// assignRanks sets competition ranks on entries already in leaderboard order.
// offset is the number of entries ranked above entries[0].
func assignRanks(entries []model.LeaderboardEntry, offset int) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = offset + i + 1
	}
}
