package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"capsum/internal/logging"
	"capsum/internal/preflight"
	"capsum/internal/processor"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workersFlag int
	var retriesFlag int
	var noRetryErrors bool
	var workerFile string
	var workerID int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Caption every pending image in the input tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workersFlag > 0 {
				cfg.Processing.Workers = workersFlag
			}
			if retriesFlag >= 0 {
				cfg.Processing.MaxRetries = retriesFlag
			}
			if noRetryErrors {
				cfg.Processing.RetryErrorsOnStart = false
			}

			out := cmd.OutOrStdout()
			checks := preflight.RunAll(cfg)
			for _, check := range checks {
				if !check.Passed {
					fmt.Fprintf(out, "preflight: %s: %s\n", check.Name, check.Detail)
				}
			}
			if !preflight.Passed(checks) {
				return fmt.Errorf("preflight checks failed")
			}

			rt, err := newRuntime(signalCtx, cfg)
			if err != nil {
				return err
			}
			defer rt.release()

			if workerFile == "" && workerID > 0 {
				workerFile = fmt.Sprintf("worker_%d_images.txt", workerID)
			}
			items, err := resolveItems(cfg, workerFile)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No images found to caption.")
				return rt.store.Close()
			}
			rt.logger.Info("starting captioning run",
				logging.Int("images", len(items)),
				logging.Int("workers", cfg.Processing.Workers),
				logging.Int("keys", rt.keys.Size()))

			bar := newProgressBar(cmd.ErrOrStderr())
			opts := []processor.Option{}
			if bar != nil {
				opts = append(opts, processor.WithProgress(func(n int) { _ = bar.Add(n) }))
			}
			pool, err := processor.NewPool(cfg.Processing.Workers, rt.client, rt.store, rt.markers, rt.logger, opts...)
			if err != nil {
				return err
			}
			batch := &processor.Batch{
				Pool:        pool,
				Store:       rt.store,
				Results:     rt.markers,
				Logger:      rt.logger,
				InputDir:    cfg.Paths.InputDir,
				OutputDir:   cfg.Paths.OutputDir,
				RetryErrors: cfg.Processing.RetryErrorsOnStart,
			}
			if bar != nil {
				batch.PendingHook = func(pending int) { bar.ChangeMax(pending) }
			}

			report, err := batch.Run(signalCtx, items)
			if err != nil {
				return err
			}
			printReport(out, report)
			printKeyStats(out, rt)
			return nil
		},
	}

	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Override the configured worker count")
	cmd.Flags().IntVar(&retriesFlag, "retries", -1, "Override the configured retry budget")
	cmd.Flags().BoolVar(&noRetryErrors, "no-retry-errors", false, "Skip reflagging erroring outputs at startup")
	cmd.Flags().StringVar(&workerFile, "worker-file", "", "Process only the images listed in this worker assignment file")
	cmd.Flags().IntVar(&workerID, "worker-id", 0, "Shorthand for --worker-file worker_<id>_images.txt in the current directory")
	return cmd
}

func printReport(out io.Writer, report processor.Report) {
	rows := [][]string{
		{"Total pending", strconv.Itoa(report.Total)},
		{"Completed", strconv.Itoa(report.Completed)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Reflagged", strconv.Itoa(report.Reflagged)},
		{"Erroring outputs", strconv.Itoa(report.ErroringOutputs)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	switch {
	case report.Interrupted:
		fmt.Fprintln(out, "Interrupted; checkpoint kept, rerun to resume.")
	case report.CheckpointCleared:
		fmt.Fprintln(out, "Run complete; checkpoint removed.")
	default:
		fmt.Fprintln(out, "Run finished with failures; checkpoint kept, rerun to retry.")
	}
}

func printKeyStats(out io.Writer, rt *runtime) {
	stats, _ := rt.keys.Snapshot()
	rows := make([][]string, 0, len(stats))
	for i, stat := range stats {
		rows = append(rows, []string{
			rt.keys.Redacted(i),
			strconv.FormatInt(stat.Requests, 10),
			strconv.FormatInt(stat.Errors, 10),
			strconv.FormatInt(stat.RateLimits, 10),
			fmt.Sprintf("%.1f%%", stat.SuccessRate()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Key", "Requests", "Errors", "Rate limits", "Success"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}
