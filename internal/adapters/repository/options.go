package repository

// TreapOption applies a configuration option to the TreapStore.
type TreapOption func(*TreapStore)

// WithSeed fixes the node priority sequence, making tree shape reproducible.
func WithSeed(seed uint64) TreapOption {
	return func(s *TreapStore) {
		s.seed = seed
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKey sets the sorted-set key holding the leaderboard.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}
