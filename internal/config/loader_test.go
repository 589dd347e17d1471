package config_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/generosity/internal/config"
	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.Platforms, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("GENEROSITY_ADDR", ":8080")
			t.Setenv("GENEROSITY_QUEUE_SIZE", "500")
			t.Setenv("GENEROSITY_WORKER_COUNT", "3")
			t.Setenv("GENEROSITY_STORAGE__DRIVER", "sqlite")
			t.Setenv("GENEROSITY_STORAGE__DSN", "/tmp/generosity.db")
			t.Setenv("GENEROSITY_LEADERBOARD__REDIS_DB", "2")
			t.Setenv("GENEROSITY_PLATFORMS", "github, slack")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.Storage.DSN, convey.ShouldEqual, "/tmp/generosity.db")
				convey.So(cfg.Leaderboard.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.Platforms, convey.ShouldResemble, []string{"github", "slack"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
worker_count: 8
context_defaults:
  help_requests_received: 40
action_types:
  pair_programming:
    name: Pair Programming
    base_score: 4
    category: collaboration
metrics:
  pairing_hours:
    name: Pairing Hours
    calculation: average
    field: hours
    filter:
      action_type: pair_programming
`)
			t.Setenv(config.EnvConfigFile, path)
			t.Setenv("GENEROSITY_WORKER_COUNT", "16")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file is read and env wins over it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.ContextDefaults["help_requests_received"], convey.ShouldEqual, 40)
				convey.So(cfg.ActionTypes["pair_programming"].BaseScore, convey.ShouldEqual, 4)

				def := cfg.Metrics["pairing_hours"]
				convey.So(def.Calculation, convey.ShouldEqual, engine.KindAverage)
				convey.So(def.Field, convey.ShouldEqual, "hours")
				convey.So(def.Filter["action_type"], convey.ShouldEqual, "pair_programming")
			})
		})

		convey.Convey("When context defaults come from the environment", func() {
			t.Setenv("GENEROSITY_CONTEXT_DEFAULTS__HELP_REQUESTS_RECEIVED", "10")
			t.Setenv("GENEROSITY_CONTEXT_DEFAULTS__TEAM", "platform")

			cfg, err := config.Load(ctx)

			convey.Convey("Then numeric values become numbers usable as denominators", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ContextDefaults["help_requests_received"], convey.ShouldEqual, 10.0)
				convey.So(cfg.ContextDefaults["team"], convey.ShouldEqual, "platform")

				m, err := engine.New().Evaluate("help_response_rate", cfg.Definitions()["help_response_rate"], nil, cfg.ContextDefaults)
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Value, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with invalid YAML", func() {
			t.Setenv(config.EnvConfigFile, writeConfigFile(t, `invalid: yaml: content: [`))
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv(config.EnvConfigFile, "/non/existent/file.yaml")
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the result fails validation", func() {
			t.Setenv("GENEROSITY_ADDR", "")
			t.Setenv("GENEROSITY_LEADERBOARD__DRIVER", "redis")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(err.Error(), convey.ShouldContainSubstring, "redis_addr")
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearConfigEnvVars unsets any GENEROSITY_ variables inherited from the shell.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}
