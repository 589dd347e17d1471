package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/metrics"
)

const defaultRedisKey = "generosity:leaderboard"

// RedisStore keeps the leaderboard in a Redis sorted set so several service
// instances can share it. Equal scores are ordered by Redis, not by actor id.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. The caller keeps ownership of client unless Close is called.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: defaultRedisKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Add implements Store.
func (s *RedisStore) Add(ctx context.Context, actorID string, delta float64) (float64, error) {
	defer observe(time.Now())
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, delta)
	}
	total, err := s.client.ZIncrBy(ctx, s.key, delta, actorID).Result()
	if err != nil {
		return 0, fmt.Errorf("zincrby: %w", err)
	}
	if n, err := s.client.ZCard(ctx, s.key).Result(); err == nil {
		metrics.UpdateLeaderboardActors(int(n))
	}
	return total, nil
}

// Rank implements Store.
func (s *RedisStore) Rank(ctx context.Context, actorID string) (model.LeaderboardEntry, error) {
	defer observe(time.Now())
	score, err := s.client.ZScore(ctx, s.key, actorID).Result()
	if errors.Is(err, redis.Nil) {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: %s", ErrNotFound, actorID)
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("zscore: %w", err)
	}
	above, err := s.client.ZCount(ctx, s.key, "("+strconv.FormatFloat(score, 'g', -1, 64), "+inf").Result()
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("zcount: %w", err)
	}
	return model.LeaderboardEntry{Rank: int(above) + 1, ActorID: actorID, Score: score}, nil
}

// TopN implements Store.
func (s *RedisStore) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	defer observe(time.Now())
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}
	out := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, model.LeaderboardEntry{ActorID: id, Score: z.Score})
	}
	assignRanks(out, 0)
	return out, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return int(n), nil
}

// Reset deletes the leaderboard key.
func (s *RedisStore) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
