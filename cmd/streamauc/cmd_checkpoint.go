package main

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/streamauc/internal/checkpoint"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spf13/cobra"
)

var checkpointDir string

func newCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage resume checkpoints",
		Long: `Manage the checkpoints written by "eval --resume".

A checkpoint holds the accumulator counters and per-dataset progress of one
evaluation, keyed by its dataset files, threshold grid and class count.`,
	}

	cmd.AddCommand(newCheckpointClearCommand())

	return cmd
}

func newCheckpointClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved checkpoints",
		Long: `Delete all saved checkpoints.

The next "eval --resume" starts every dataset from the first row.`,
		RunE: checkpointClearE,
	}

	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", projectconfig.DefaultCheckpointDir, "Checkpoint directory to clear")

	return cmd
}

func checkpointClearE(cmd *cobra.Command, args []string) error {
	absDir, err := filepath.Abs(checkpointDir)
	if err != nil {
		return fmt.Errorf("resolving checkpoint directory: %w", err)
	}

	if err := checkpoint.New(absDir).Clear(); err != nil {
		return fmt.Errorf("clearing checkpoints: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Checkpoints cleared: %s\n", absDir) //nolint:errcheck
	return nil
}
