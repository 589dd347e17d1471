package main

import (
	"context"
	"fmt"

	"github.com/okian/generosity/internal/adapters/repository"
	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/adapters/storage/postgres"
	"github.com/okian/generosity/internal/adapters/storage/sqlite"
	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/config"
	"github.com/okian/generosity/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// buildService assembles a Service from configuration. Backends are opened
// here and handed to the Service, which closes them on Stop.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	board, err := openLeaderboard(ctx, cfg.Leaderboard)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return service.New(
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithDefaultBaseScore(cfg.DefaultBaseScore),
		service.WithRegistry(reg),
		service.WithDefinitions(cfg.Definitions()),
		service.WithContextDefaults(cfg.ContextDefaults),
		service.WithStore(store),
		service.WithLeaderboard(board),
	), nil
}

func openStore(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	switch sc.Driver {
	case config.DriverMemory, "":
		return storage.NewMemoryStore(), nil
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.Connect(ctx, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", config.ErrInvalidConfig, sc.Driver)
	}
}

func openLeaderboard(ctx context.Context, lc config.LeaderboardConfig) (repository.Store, error) {
	switch lc.Driver {
	case config.DriverMemory, "":
		return repository.NewTreapStore(), nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     lc.RedisAddr,
			Password: lc.RedisPassword,
			DB:       lc.RedisDB,
		})
		var opts []repository.RedisOption
		if lc.RedisKey != "" {
			opts = append(opts, repository.WithKey(lc.RedisKey))
		}
		board := repository.NewRedisStore(client, opts...)
		if err := board.Ping(ctx); err != nil {
			_ = board.Close()
			return nil, fmt.Errorf("connect redis leaderboard: %w", err)
		}
		return board, nil
	default:
		return nil, fmt.Errorf("%w: leaderboard driver %q", config.ErrInvalidConfig, lc.Driver)
	}
}
