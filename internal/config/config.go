// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/internal/domain/registry"
)

// Storage and leaderboard drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory action queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many action ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultBaseScore scores action types missing from the registry.
	DefaultBaseScore float64 `koanf:"default_base_score"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Storage     StorageConfig     `koanf:"storage"`
	Leaderboard LeaderboardConfig `koanf:"leaderboard"`

	// Platforms selects the built-in action catalogs to register. Empty
	// means every catalog.
	Platforms []string `koanf:"platforms"`

	// DisableCatalogs registers only ActionTypes.
	DisableCatalogs bool `koanf:"disable_catalogs"`

	// ActionTypes registers or overrides action types after the catalogs.
	ActionTypes map[string]ActionTypeConfig `koanf:"action_types"`

	// UseDefaultMetrics keeps the stock metric set underneath Metrics.
	UseDefaultMetrics bool `koanf:"use_default_metrics"`

	// Metrics adds or replaces metric definitions by id.
	Metrics map[string]engine.Definition `koanf:"metrics"`

	// ContextDefaults seeds every evaluation context, e.g. denominators.
	ContextDefaults map[string]any `koanf:"context_defaults"`
}

// StorageConfig selects where recorded actions are kept.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// LeaderboardConfig selects the leaderboard backend.
type LeaderboardConfig struct {
	Driver        string `koanf:"driver"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`
}

// ActionTypeConfig declares one action type.
type ActionTypeConfig struct {
	Name            string         `koanf:"name"`
	Description     string         `koanf:"description"`
	BaseScore       float64        `koanf:"base_score"`
	Category        string         `koanf:"category"`
	ValidationRules map[string]any `koanf:"validation_rules"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		DefaultBaseScore:    1.0,
		ShutdownTimeout:     10 * time.Second,
		Storage:             StorageConfig{Driver: DriverMemory},
		Leaderboard:         LeaderboardConfig{Driver: DriverMemory, RedisKey: "generosity:leaderboard"},
		UseDefaultMetrics:   true,
	}
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if strings.TrimSpace(c.Addr) == "" {
		add("addr must not be empty")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		add("log_format %q must be json or text", c.LogFormat)
	}
	if c.QueueSize < 1 {
		add("queue_size must be positive")
	}
	if c.WorkerCount < 0 {
		add("worker_count must not be negative")
	}
	if c.DedupeSize < 0 {
		add("dedupe_size must not be negative")
	}
	if c.MaxLeaderboardLimit < 1 {
		add("max_leaderboard_limit must be positive")
	}
	if c.DefaultBaseScore <= 0 {
		add("default_base_score must be positive")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			add("storage.dsn is required for %s", c.Storage.Driver)
		}
	default:
		add("storage.driver %q must be memory, sqlite or postgres", c.Storage.Driver)
	}

	switch c.Leaderboard.Driver {
	case DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(c.Leaderboard.RedisAddr) == "" {
			add("leaderboard.redis_addr is required for redis")
		}
	default:
		add("leaderboard.driver %q must be memory or redis", c.Leaderboard.Driver)
	}

	known := registry.Platforms()
	for _, p := range c.Platforms {
		if !slices.Contains(known, strings.ToLower(strings.TrimSpace(p))) {
			add("platform %q is not one of %s", p, strings.Join(known, ", "))
		}
	}
	for id, at := range c.ActionTypes {
		if at.BaseScore < 0 {
			add("action_types.%s.base_score must not be negative", id)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// BuildRegistry registers the selected catalogs, then the configured action
// types in key order so later entries win deterministically.
func (c *Config) BuildRegistry() (*registry.Registry, error) {
	r := registry.New()
	if !c.DisableCatalogs {
		if err := registry.RegisterDefaults(r, c.Platforms...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(c.ActionTypes)) {
		at := c.ActionTypes[id]
		name := at.Name
		if name == "" {
			name = id
		}
		r.Register(id, name, at.Description, at.BaseScore, at.Category, at.ValidationRules)
	}
	return r, nil
}

// Definitions returns the metric definitions to evaluate.
func (c *Config) Definitions() map[string]engine.Definition {
	defs := map[string]engine.Definition{}
	if c.UseDefaultMetrics {
		defs = engine.DefaultDefinitions()
	}
	maps.Copy(defs, c.Metrics)
	return defs
}
