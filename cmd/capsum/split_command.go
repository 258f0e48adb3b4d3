package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"capsum/internal/checkpoint"
	"capsum/internal/config"
	"capsum/internal/workset"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var dir string
	var includeDone bool

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Partition the backlog into static worker assignment files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			items, err := workset.Discover(cfg.Paths.InputDir, cfg.Paths.OutputDir)
			if err != nil {
				return err
			}

			if !includeDone {
				store, err := checkpoint.Open(cfg.Paths.CheckpointPath)
				if err != nil {
					return err
				}
				processed, err := store.Load(context.Background())
				closeErr := store.Close()
				if err != nil {
					return err
				}
				if closeErr != nil {
					return closeErr
				}
				items = workset.Pending(items, processed)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Nothing to split; backlog is empty.")
				return nil
			}

			target, err := config.ExpandPath(dir)
			if err != nil {
				return err
			}
			paths, err := workset.Split(items, workers, target)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(out, path)
			}
			fmt.Fprintf(out, "Partitioned %d image(s) across %d worker file(s).\n", len(items), len(paths))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "n", 2, "Number of worker assignment files to produce")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory for the worker assignment files")
	cmd.Flags().BoolVar(&includeDone, "include-done", false, "Include images already recorded in the checkpoint")
	return cmd
}
