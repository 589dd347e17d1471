package service

import (
	"maps"
	"time"

	"github.com/okian/generosity/internal/adapters/repository"
	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the action queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many action ids are remembered for idempotency.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDefaultBaseScore sets the base score for unregistered action types.
func WithDefaultBaseScore(score float64) Option {
	return func(s *Service) {
		if score > 0 {
			s.defaultBaseScore = score
		}
	}
}

// WithRegistry supplies a populated action registry. Without it the built-in
// platform catalogs are registered.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithDefinitions sets the metric definitions. Without it DefaultDefinitions is used.
func WithDefinitions(defs map[string]engine.Definition) Option {
	return func(s *Service) {
		if len(defs) > 0 {
			s.definitions = maps.Clone(defs)
		}
	}
}

// WithContextDefaults sets evaluation context values that requests may override.
func WithContextDefaults(values map[string]any) Option {
	return func(s *Service) {
		s.contextDefaults = maps.Clone(values)
	}
}

// WithStore sets the action store. The service closes it on Stop.
func WithStore(st storage.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLeaderboard sets the leaderboard. The service closes it on Stop.
func WithLeaderboard(lb repository.Store) Option {
	return func(s *Service) {
		if lb != nil {
			s.leaderboard = lb
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for default action timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
