package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"capsum/internal/results"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan caption files for embedded error markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			classifier := results.NewClassifier(cfg.Phrases.ErrorMarkers)
			erroring, err := classifier.ScanOutputs(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(erroring) == 0 {
				fmt.Fprintln(out, "No erroring caption files found.")
				return nil
			}

			if verbose {
				rows := make([][]string, 0, len(erroring))
				for _, path := range erroring {
					rel, relErr := filepath.Rel(cfg.Paths.OutputDir, path)
					if relErr != nil {
						rel = path
					}
					rows = append(rows, []string{rel})
				}
				fmt.Fprintln(out, renderTable([]string{"Erroring output"}, rows, []columnAlignment{alignLeft}))
			}
			fmt.Fprintf(out, "%d caption file(s) contain error markers. Run `capsum fix` to reprocess them.\n", len(erroring))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every erroring caption file")
	return cmd
}
