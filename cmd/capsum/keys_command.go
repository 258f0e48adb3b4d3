package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"capsum/internal/keypool"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Show the configured API key rotation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pool, err := keypool.New(cfg.Gemini.APIKeys)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, pool.Size())
			for i := 0; i < pool.Size(); i++ {
				rows = append(rows, []string{strconv.Itoa(i), pool.Redacted(i)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Index", "Key"}, rows, []columnAlignment{alignRight, alignLeft}))
			fmt.Fprintf(out, "%d key(s) in rotation; model %s\n", pool.Size(), cfg.Gemini.Model)
			return nil
		},
	}
}
