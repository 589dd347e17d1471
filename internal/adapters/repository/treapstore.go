package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// The BST comparator treats "less" as "ranks earlier", so an in-order walk
// yields the leaderboard from best to worst. Subtree sizes give O(log n) rank.

// scoreScale controls fixed-point scaling so equal totals compare equal.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	scaled := math.Round(x * scoreScale)
	switch {
	case scaled >= math.MaxInt64:
		return scoreFP(math.MaxInt64)
	case scaled <= math.MinInt64:
		return scoreFP(math.MinInt64)
	}
	return scoreFP(scaled)
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have a score strictly greater than score.
func countAbove(n *node, score scoreFP) int {
	c := 0
	for n != nil {
		if n.score > score {
			c += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return c
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]model.LeaderboardEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, model.LeaderboardEntry{ActorID: n.id, Score: toFloat(n.score)})
	}
	collectTopN(n.right, limit, out)
}

// TreapStore is an in-memory leaderboard.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]scoreFP
	rng  *rand.Rand
	seed uint64
}

var _ Store = (*TreapStore)(nil)

// NewTreapStore constructs an empty treap leaderboard.
func NewTreapStore(opts ...TreapOption) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]scoreFP),
		seed: uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Add implements Store in O(log n) expected time.
func (s *TreapStore) Add(_ context.Context, actorID string, delta float64) (float64, error) {
	defer observe(time.Now())
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, delta)
	}

	s.mu.Lock()
	old, known := s.byID[actorID]
	if known {
		s.root = deleteNode(s.root, actorID, old)
	}
	total := toFixedPoint(toFloat(old) + delta)
	s.byID[actorID] = total
	s.root = insert(s.root, actorID, total, s.rng.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	if !known {
		metrics.UpdateLeaderboardActors(count)
	}
	return toFloat(total), nil
}

// Rank implements Store in O(log n) expected time.
func (s *TreapStore) Rank(_ context.Context, actorID string) (model.LeaderboardEntry, error) {
	defer observe(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[actorID]
	if !ok {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: %s", ErrNotFound, actorID)
	}
	return model.LeaderboardEntry{
		Rank:    countAbove(s.root, score) + 1,
		ActorID: actorID,
		Score:   toFloat(score),
	}, nil
}

// TopN implements Store.
func (s *TreapStore) TopN(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	defer observe(time.Now())
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LeaderboardEntry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	assignRanks(out, 0)
	return out, nil
}

// Count implements Store.
func (s *TreapStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close implements Store.
func (s *TreapStore) Close() error { return nil }

func observe(start time.Time) {
	metrics.RecordLeaderboardLatency(float64(time.Since(start).Microseconds()) / 1000.0)
}
