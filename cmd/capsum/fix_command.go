package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"capsum/internal/logging"
	"capsum/internal/processor"
)

func newFixCommand(ctx *commandContext) *cobra.Command {
	var workersFlag int

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Reprocess images whose caption files contain error markers",
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

			rt, err := newRuntime(signalCtx, cfg)
			if err != nil {
				return err
			}
			defer rt.release()

			out := cmd.OutOrStdout()
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
				RetryErrors: true,
			}
			if bar != nil {
				batch.PendingHook = func(pending int) { bar.ChangeMax(pending) }
			}

			items, orphaned, err := batch.FixItems()
			if err != nil {
				return err
			}
			for _, orphan := range orphaned {
				fmt.Fprintf(out, "orphaned output (source image missing): %s\n", orphan)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No erroring caption files found.")
				return rt.store.Close()
			}
			rt.logger.Info("reprocessing erroring outputs", logging.Int("count", len(items)))

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
	return cmd
}
