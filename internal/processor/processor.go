package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"capsum/internal/checkpoint"
	"capsum/internal/gemini"
	"capsum/internal/logging"
	"capsum/internal/results"
	"capsum/internal/workset"
)

// Service captions a single image. The production implementation is the
// Gemini client; tests substitute fakes.
type Service interface {
	Process(ctx context.Context, sourcePath string) gemini.Result
}

// Summary reports the outcome of one pool run.
type Summary struct {
	Total       int
	Completed   int
	Failed      int
	Skipped     int
	Interrupted bool
}

// Pool drives pending items through the captioning service with a fixed
// number of workers. Cancellation is observed between items: once the
// context is done, queued items are counted as skipped while in-flight
// calls run to completion and are still checkpointed.
type Pool struct {
	workers  int
	service  Service
	store    *checkpoint.Store
	results  *results.Classifier
	logger   *slog.Logger
	progress func(int)
}

// Option adjusts pool construction.
type Option func(*Pool)

// WithProgress registers a callback invoked once per finished item,
// including skipped ones, so a progress display always reaches its total.
func WithProgress(fn func(int)) Option {
	return func(p *Pool) {
		if fn != nil {
			p.progress = fn
		}
	}
}

// NewPool builds a worker pool.
func NewPool(workers int, service Service, store *checkpoint.Store, classifier *results.Classifier, logger *slog.Logger, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workers)
	}
	if service == nil {
		return nil, fmt.Errorf("captioning service is required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("results classifier is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	pool := &Pool{
		workers:  workers,
		service:  service,
		store:    store,
		results:  classifier,
		logger:   logger,
		progress: func(int) {},
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool, nil
}

// runState is the shared mutable state of one Run call.
type runState struct {
	mu        sync.Mutex
	processed map[string]struct{}
	completed int
	failed    int
	skipped   int
}

// Run processes the pending items, mutating processed as items complete
// cleanly. The processed set and the checkpoint store stay in sync: an
// identifier is added to both, under the same lock, only after its output
// is written and verified marker-free.
func (p *Pool) Run(ctx context.Context, pending []workset.Item, processed map[string]struct{}) Summary {
	state := &runState{processed: processed}

	// Checkpoint writes survive cancellation: an in-flight item that
	// finishes after shutdown began is still durable work.
	saveCtx := context.WithoutCancel(ctx)

	feed := make(chan workset.Item)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for item := range feed {
				if ctx.Err() != nil {
					state.mu.Lock()
					state.skipped++
					state.mu.Unlock()
					p.progress(1)
					continue
				}
				p.processItem(ctx, saveCtx, worker, item, state)
				p.progress(1)
			}
		}(i)
	}

	for _, item := range pending {
		feed <- item
	}
	close(feed)
	wg.Wait()

	return Summary{
		Total:       len(pending),
		Completed:   state.completed,
		Failed:      state.failed,
		Skipped:     state.skipped,
		Interrupted: ctx.Err() != nil,
	}
}

func (p *Pool) processItem(ctx, saveCtx context.Context, worker int, item workset.Item, state *runState) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker recovered from panic",
				logging.Int("worker", worker),
				logging.String("item", item.RelPath),
				logging.Any("panic", r))
			state.mu.Lock()
			state.failed++
			state.mu.Unlock()
		}
	}()

	result := p.service.Process(ctx, item.SourcePath)

	if err := writeOutput(item.OutputPath, result.Text); err != nil {
		p.logger.Error("failed to write caption output",
			logging.String("item", item.RelPath),
			logging.Error(err))
		state.mu.Lock()
		state.failed++
		state.mu.Unlock()
		return
	}

	if !result.OK() || p.results.HasError(result.Text) {
		p.logger.Warn("captioning failed",
			logging.Int("worker", worker),
			logging.String("item", item.RelPath),
			logging.Int("key_index", result.KeyIndex))
		state.mu.Lock()
		state.failed++
		state.mu.Unlock()
		return
	}

	state.mu.Lock()
	err := p.store.Add(saveCtx, item.RelPath)
	if err == nil {
		state.processed[item.RelPath] = struct{}{}
		state.completed++
	} else {
		state.failed++
	}
	state.mu.Unlock()

	if err != nil {
		p.logger.Error("failed to checkpoint completed item",
			logging.String("item", item.RelPath),
			logging.Error(err))
		return
	}
	p.logger.Info("captioned",
		logging.Int("worker", worker),
		logging.String("item", item.RelPath),
		logging.Int("key_index", result.KeyIndex))
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write caption output: %w", err)
	}
	return nil
}
