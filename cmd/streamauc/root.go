package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streamauc",
		Short: "streamauc - streaming ROC/AUC evaluation for classifiers",
		Long: `streamauc evaluates classifier scores without holding the dataset in memory.

Samples are streamed in batches into a fixed grid of thresholds, producing
per-class confusion matrices, ROC and precision-recall curves, and AUC with
one-vs-all, macro, micro and weighted aggregation. Quality gates turn the
results into a pass/fail signal for CI.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newCheckpointCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
