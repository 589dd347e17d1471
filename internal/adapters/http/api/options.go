package api

import "github.com/okian/generosity/pkg/logger"

const defaultMaxLeaderboardLimit = 100

type options struct {
	maxLimit int
	logger   logger.Logger
}

// Option configures the Server.
type Option func(*options)

// WithMaxLeaderboardLimit caps the limit accepted by GET /leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
