package main

import (
	"encoding/json"
	"fmt"

	"github.com/spboyer/streamauc/internal/baseline"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/reporting"
	"github.com/spf13/cobra"
)

var compareOutputFormat string

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <baseline.json> <candidate.json>",
		Short: "Compare a candidate report against a baseline",
		Long: `Compare two saved evaluation reports.

Shows per-class and aggregate AUC deltas, a composite improvement score in
[-1, 1], and, when both reports carry per-batch AUC values, a bootstrap
confidence interval for the difference.`,
		Args: cobra.ExactArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table or json")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	if compareOutputFormat != "table" && compareOutputFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareOutputFormat)
	}

	base, err := models.LoadReport(args[0])
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	cand, err := models.LoadReport(args[1])
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}

	cmp, err := baseline.Compare(base, cand)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if compareOutputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cmp)
	}
	reporting.WriteComparisonTable(out, cmp)
	return nil
}
