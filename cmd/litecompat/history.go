// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litecompat/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversions and check output size reproducibility",
	Long: `History reads the run ledger (.litecompat/ledger.db by default) and lists
past conversion attempts, newest first. Successful runs that share the input,
flags and TensorFlow version are grouped to show whether repeated conversions
produced the same byte length.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("input", "", "only show runs for this input path")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("format", "text", "output format: text, json, or yaml")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return errors.New("the run ledger is disabled (ledger.enabled: false)")
	}

	input, _ := cmd.Flags().GetString("input")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	store, err := ledger.NewStore(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.History(ctx, ledger.HistoryOptions{Input: input, Limit: limit})
	if err != nil {
		return err
	}
	drift, err := store.Drift(ctx, input)
	if err != nil {
		return err
	}
	return ledger.WriteHistory(cmd.OutOrStdout(), runs, drift, format)
}
