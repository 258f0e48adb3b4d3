package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"capsum/internal/checkpoint"
	"capsum/internal/config"
	"capsum/internal/gemini"
	"capsum/internal/keypool"
	"capsum/internal/logging"
	"capsum/internal/ratelimit"
	"capsum/internal/results"
	"capsum/internal/retry"
	"capsum/internal/workset"
)

// runtime bundles the wired processing stack for one invocation. The
// checkpoint store's lifecycle is owned by the batch; release only frees
// the instance lock.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	runID    string
	keys     *keypool.Pool
	limiter  *ratelimit.Limiter
	failures *retry.Classifier
	markers  *results.Classifier
	client   *gemini.Client
	store    *checkpoint.Store
	lock     *flock.Flock
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String("run", runID[:8]))

	// The lock lives next to the checkpoint: two concurrent runs would
	// corrupt the shared processed set.
	lock := flock.New(filepath.Join(filepath.Dir(cfg.Paths.CheckpointPath), "capsum.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another capsum run is already in progress")
	}
	release := func() { _ = lock.Unlock() }

	keys, err := keypool.New(cfg.Gemini.APIKeys)
	if err != nil {
		release()
		return nil, err
	}
	limiter, err := ratelimit.New(cfg.Processing.RateLimitCalls, time.Duration(cfg.Processing.RateLimitPeriod)*time.Second)
	if err != nil {
		release()
		return nil, err
	}
	failures := retry.NewClassifier(cfg.Phrases.RateLimit, cfg.Phrases.ServerRetry)
	markers := results.NewClassifier(cfg.Phrases.ErrorMarkers)

	prompt, err := cfg.Prompt()
	if err != nil {
		release()
		return nil, err
	}
	client, err := gemini.New(ctx, gemini.Config{
		Model:         cfg.Gemini.Model,
		Prompt:        prompt,
		MaxRetries:    cfg.Processing.MaxRetries,
		RetryBase:     secondsToDuration(cfg.Processing.RetryBaseSeconds),
		RetryMax:      secondsToDuration(cfg.Processing.RetryMaxSeconds),
		RotationDelay: secondsToDuration(cfg.Processing.RotationDelaySeconds),
		Timeout:       time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	}, keys, limiter, failures, logger)
	if err != nil {
		release()
		return nil, err
	}

	store, err := checkpoint.Open(cfg.Paths.CheckpointPath)
	if err != nil {
		release()
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		runID:    runID,
		keys:     keys,
		limiter:  limiter,
		failures: failures,
		markers:  markers,
		client:   client,
		store:    store,
		lock:     lock,
	}, nil
}

func (r *runtime) release() {
	_ = r.lock.Unlock()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// resolveItems enumerates the backlog, from a static worker assignment file
// when one is configured, otherwise by walking the input tree.
func resolveItems(cfg *config.Config, workerFile string) ([]workset.Item, error) {
	if workerFile == "" {
		workerFile = cfg.Paths.WorkerFile
	}
	if workerFile != "" {
		expanded, err := config.ExpandPath(workerFile)
		if err != nil {
			return nil, err
		}
		return workset.FromListFile(expanded, cfg.Paths.InputDir, cfg.Paths.OutputDir)
	}
	return workset.Discover(cfg.Paths.InputDir, cfg.Paths.OutputDir)
}

// newProgressBar returns a progress display when stderr is a terminal,
// nil otherwise. The total starts at zero and is sized once the pending
// count is known.
func newProgressBar(out io.Writer) *progressbar.ProgressBar {
	file, ok := out.(*os.File)
	if !ok || (!isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd())) {
		return nil
	}
	return progressbar.NewOptions(0,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("captioning"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
}
