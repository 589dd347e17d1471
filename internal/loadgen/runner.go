package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/generosity/pkg/logger"
)

const (
	drainPollInterval   = 100 * time.Millisecond
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete load run: health check, submission, drain, then
// verification of evaluations and the leaderboard.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("actions", cfg.NumActions),
		logger.Int("actors", cfg.NumActors),
		logger.Int("workers", cfg.Workers))

	if err := c.getJSON(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var before ServiceStats
	if err := c.getJSON(ctx, "/stats", &before); err != nil {
		return nil, fmt.Errorf("read baseline stats: %w", err)
	}

	actions := NewGenerator(cfg.Seed, cfg.NumActors).Generate(cfg.NumActions, cfg.DuplicatePct)
	submit(ctx, c, cfg.Workers, actions, stats)
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))

	if err := waitForDrain(ctx, c, before, int64(stats.Accepted), cfg.DrainTimeout); err != nil {
		return stats, err
	}

	var metrics []Metric
	if err := c.getJSON(ctx, "/evaluations", &metrics); err != nil {
		return stats, fmt.Errorf("evaluate: %w", err)
	}
	stats.Metrics = make(map[string]float64, len(metrics))
	for _, m := range metrics {
		stats.Metrics[m.ID] = m.Value
	}

	q := url.Values{"limit": {strconv.Itoa(cfg.TopN)}}
	if err := c.getJSON(ctx, "/leaderboard?"+q.Encode(), &stats.Leaderboard); err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveActions(cfg.OutputFile, actions); err != nil {
			log.Warn(ctx, "failed to save actions", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	if err := verify(stats, distinctIDs(actions)); err != nil {
		return stats, err
	}

	log.Info(ctx, "load run completed",
		logger.Int("submitted", stats.Submitted),
		logger.Float64("total_generous_actions", stats.Metrics["total_generous_actions"]),
		logger.Int("leaderboard_entries", len(stats.Leaderboard)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("actions_per_second", float64(stats.Submitted)/stats.Duration.Seconds()))
	return stats, nil
}

// submit posts actions from a pool of workers.
func submit(ctx context.Context, c *client, workers int, actions []Action, stats *Stats) {
	if workers < 1 {
		workers = 1
	}
	var accepted, duplicate, rejected, failed atomic.Int64

	ch := make(chan Action, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range ch {
				switch c.postAction(ctx, a) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

feed:
	for _, a := range actions {
		select {
		case <-ctx.Done():
			break feed
		case ch <- a:
		}
	}
	close(ch)
	wg.Wait()

	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.Submitted = stats.Accepted + stats.Duplicate + stats.Rejected + stats.Failed
}

// waitForDrain polls /stats until every accepted action has left the workers.
func waitForDrain(ctx context.Context, c *client, before ServiceStats, accepted int64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		var now ServiceStats
		if err := c.getJSON(ctx, "/stats", &now); err == nil {
			done := (now.Processed - before.Processed) + (now.Duplicates - before.Duplicates) + (now.Failed - before.Failed)
			if done >= accepted && now.QueueLength == 0 {
				return nil
			}
			logger.Get().Debug(ctx, "waiting for drain",
				logger.Int("queue_length", now.QueueLength), logger.Any("done", done), logger.Any("accepted", accepted))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w after %s", ErrDrainTimeout, timeout)
		case <-ticker.C:
		}
	}
}

func saveActions(path string, actions []Action) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
