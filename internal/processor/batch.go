package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"capsum/internal/checkpoint"
	"capsum/internal/logging"
	"capsum/internal/results"
	"capsum/internal/workset"
)

// Batch runs one full captioning pass over a backlog: load the checkpoint,
// reconcile it against the outputs on disk, process what remains, and
// retire the checkpoint when nothing is left to resume.
type Batch struct {
	Pool        *Pool
	Store       *checkpoint.Store
	Results     *results.Classifier
	Logger      *slog.Logger
	InputDir    string
	OutputDir   string
	RetryErrors bool

	// PendingHook, when set, receives the resolved pending count before
	// workers start. Progress displays use it to size themselves.
	PendingHook func(pending int)
}

// Report extends the pool summary with the end-of-run accounting.
type Report struct {
	Summary
	Reflagged         int
	ErroringOutputs   int
	CheckpointCleared bool
}

// Run executes the batch over the given backlog. The checkpoint file is
// removed only after a run that was not interrupted and whose final output
// scan finds zero erroring captions; otherwise it is kept for resume.
func (b *Batch) Run(ctx context.Context, items []workset.Item) (Report, error) {
	logger := b.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	processed, err := b.Store.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	logger.Info("checkpoint loaded", logging.Int("completed_items", len(processed)))

	var report Report
	if b.RetryErrors {
		reflagged, err := b.reflagErrors(ctx, processed)
		if err != nil {
			return Report{}, err
		}
		report.Reflagged = reflagged
		if reflagged > 0 {
			logger.Info("reflagged erroring outputs for retry", logging.Int("count", reflagged))
		}
	}

	pending := workset.Pending(items, processed)
	logger.Info("backlog resolved",
		logging.Int("total", len(items)),
		logging.Int("already_done", len(items)-len(pending)),
		logging.Int("pending", len(pending)))
	if b.PendingHook != nil {
		b.PendingHook(len(pending))
	}

	report.Summary = b.Pool.Run(ctx, pending, processed)

	erroring, err := b.Results.ScanOutputs(b.OutputDir)
	if err != nil {
		return report, fmt.Errorf("final output scan: %w", err)
	}
	report.ErroringOutputs = len(erroring)

	if !report.Interrupted && report.Failed == 0 && len(erroring) == 0 {
		if err := b.Store.Remove(); err != nil {
			return report, err
		}
		report.CheckpointCleared = true
		logger.Info("run complete, checkpoint removed")
	} else {
		if err := b.Store.Close(); err != nil {
			return report, err
		}
		logger.Info("checkpoint kept for resume",
			logging.Bool("interrupted", report.Interrupted),
			logging.Int("erroring_outputs", len(erroring)))
	}
	return report, nil
}

// reflagErrors scans existing outputs for error markers and drops the
// matching identifiers from the checkpoint so they are processed again.
// The mutation is written through to the store before any worker starts.
func (b *Batch) reflagErrors(ctx context.Context, processed map[string]struct{}) (int, error) {
	erroring, err := b.Results.ScanOutputs(b.OutputDir)
	if err != nil {
		return 0, fmt.Errorf("scan outputs for errors: %w", err)
	}
	if len(erroring) == 0 {
		return 0, nil
	}

	identifiers := workset.IdentifiersForOutputs(b.OutputDir, erroring, processed)
	if len(identifiers) == 0 {
		return 0, nil
	}
	if err := b.Store.Delete(ctx, identifiers); err != nil {
		return 0, err
	}
	for _, id := range identifiers {
		delete(processed, id)
	}
	return len(identifiers), nil
}

// FixItems rebuilds work items for every erroring output on disk, probing
// the input tree for the source images. Outputs whose source no longer
// exists are reported as orphaned and left alone.
func (b *Batch) FixItems() ([]workset.Item, []string, error) {
	erroring, err := b.Results.ScanOutputs(b.OutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan outputs for errors: %w", err)
	}
	items, orphaned := workset.ItemsForOutputs(b.InputDir, b.OutputDir, erroring, func(path string) bool {
		_, statErr := os.Stat(path)
		return statErr == nil
	})
	return items, orphaned, nil
}
