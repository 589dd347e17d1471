package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/generosity/internal/loadgen"
	"github.com/okian/generosity/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumActions   = 10000
	defaultNumActors    = 500
	defaultDuplicatePct = 5
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultDrainTimeout = 2 * time.Minute
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numActions   = flag.Int("actions", defaultNumActions, "Number of actions to submit")
		numActors    = flag.Int("actors", defaultNumActors, "Number of distinct actors")
		duplicatePct = flag.Int("dup", defaultDuplicatePct, "Percentage of submissions that resend an earlier action")
		topN         = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drain        = flag.Duration("drain", defaultDrainTimeout, "How long to wait for the queue to drain")
		seed         = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		outputFile   = flag.String("output", "", "Write submitted actions to this JSON file")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:      *baseURL,
		NumActions:   *numActions,
		NumActors:    *numActors,
		DuplicatePct: *duplicatePct,
		TopN:         *topN,
		Workers:      *workers,
		Timeout:      *timeout,
		DrainTimeout: *drain,
		Seed:         *seed,
		OutputFile:   *outputFile,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
