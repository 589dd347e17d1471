package loadgen

import "fmt"

// verify checks that the service accounted for everything it accepted and
// that the leaderboard is ordered.
func verify(stats *Stats, distinct int) error {
	total, ok := stats.Metrics["total_generous_actions"]
	if !ok {
		return fmt.Errorf("%w: total_generous_actions missing from evaluations", ErrVerification)
	}
	// The service may hold actions from earlier runs, so only a lower bound holds.
	if int(total) < stats.Accepted {
		return fmt.Errorf("%w: total_generous_actions %.0f < %d accepted", ErrVerification, total, stats.Accepted)
	}
	if stats.Accepted > distinct {
		return fmt.Errorf("%w: %d accepted but only %d distinct ids submitted", ErrVerification, stats.Accepted, distinct)
	}
	return verifyLeaderboard(stats.Leaderboard)
}

// verifyLeaderboard checks descending scores and competition ranks.
func verifyLeaderboard(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry has rank %d", ErrVerification, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Score > prev.Score:
			return fmt.Errorf("%w: %s (%.3f) ranked below %s (%.3f)", ErrVerification, e.ActorID, e.Score, prev.ActorID, prev.Score)
		case e.Score == prev.Score && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied actors %s and %s have ranks %d and %d", ErrVerification, prev.ActorID, e.ActorID, prev.Rank, e.Rank)
		case e.Score < prev.Score && e.Rank != i+1:
			return fmt.Errorf("%w: %s has rank %d at position %d", ErrVerification, e.ActorID, e.Rank, i+1)
		}
	}
	return nil
}
