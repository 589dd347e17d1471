package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/generosity/internal/adapters/repository"
	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/adapters/storage/sqlite"
	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/config"
	"github.com/okian/generosity/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given storage configurations", t, func() {
		ctx := context.Background()

		convey.Convey("The memory driver returns an in-process store", func() {
			st, err := openStore(ctx, config.StorageConfig{Driver: config.DriverMemory})
			convey.So(err, convey.ShouldBeNil)
			_, ok := st.(*storage.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(st.Close(), convey.ShouldBeNil)
		})

		convey.Convey("The sqlite driver opens the file at dsn", func() {
			dsn := filepath.Join(t.TempDir(), "actions.db")
			st, err := openStore(ctx, config.StorageConfig{Driver: config.DriverSQLite, DSN: dsn})
			convey.So(err, convey.ShouldBeNil)
			_, ok := st.(*sqlite.Store)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(st.Close(), convey.ShouldBeNil)
		})

		convey.Convey("An unknown driver is a config error", func() {
			_, err := openStore(ctx, config.StorageConfig{Driver: "mongo"})
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestOpenLeaderboard(t *testing.T) {
	convey.Convey("Given leaderboard configurations", t, func() {
		ctx := context.Background()

		convey.Convey("The memory driver returns a treap", func() {
			lb, err := openLeaderboard(ctx, config.LeaderboardConfig{Driver: config.DriverMemory})
			convey.So(err, convey.ShouldBeNil)
			_, ok := lb.(*repository.TreapStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("An unreachable redis fails fast", func() {
			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			_, err := openLeaderboard(ctx, config.LeaderboardConfig{Driver: config.DriverRedis, RedisAddr: "127.0.0.1:1"})
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("An unknown driver is a config error", func() {
			_, err := openLeaderboard(ctx, config.LeaderboardConfig{Driver: "memcached"})
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a config with a custom action type and metric", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.Platforms = []string{"web"}
		cfg.ActionTypes = map[string]config.ActionTypeConfig{
			"pair_programming": {BaseScore: 4, Category: "collaboration"},
		}
		cfg.ContextDefaults = map[string]any{"help_requests_received": 10}

		svc, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			convey.So(svc.Stop(stopCtx), convey.ShouldBeNil)
		}()

		convey.Convey("Then the registry reflects the config", func() {
			st := svc.GetStats(ctx)
			convey.So(st.RegisteredTypes, convey.ShouldEqual, 4)
			convey.So(st.Workers, convey.ShouldEqual, 2)
			convey.So(svc.ActionTypes("collaboration"), convey.ShouldHaveLength, 1)
		})

		convey.Convey("Then recorded actions are scored with the configured base score", func() {
			_, _, err := svc.Record(ctx, service.ActionRequest{
				ActionID: "p-1", ActorID: "alice", ActionType: "pair_programming", Context: "web",
			})
			convey.So(err, convey.ShouldBeNil)

			var score float64
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if e, err := svc.Rank(ctx, "alice"); err == nil {
					score = e.Score
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			convey.So(score, convey.ShouldEqual, 4)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1
		cfg.ShutdownTimeout = 2 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Get()) }()

		convey.Convey("When the context is cancelled it shuts down cleanly", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				convey.So("run did not return", convey.ShouldBeEmpty)
			}
		})
	})
}
