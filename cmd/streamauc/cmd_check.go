package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spboyer/streamauc/internal/gates"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/spboyer/streamauc/internal/validation"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [config]",
		Short: "Validate a .streamauc.yaml project config",
		Long: `Validate a project config against the config schema, then check that its
threshold grid, gates and history aggregation can actually be built.

With no arguments the nearest .streamauc.yaml above the current directory is
checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

// checkReport is the JSON output of the check command.
type checkReport struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q: must be text or json", format)
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		found, err := projectconfig.Find(".")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no %s found in this directory or its parents", projectconfig.FileName)
			}
			return err
		}
		path = found
	}

	report, err := checkConfig(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printCheckReport(out, report)
	}

	if !report.Valid {
		return fmt.Errorf("%s has %d problem(s)", path, len(report.Problems))
	}
	return nil
}

// checkConfig runs schema validation first; semantic checks only run on a
// schema-valid file.
func checkConfig(path string) (*checkReport, error) {
	report := &checkReport{Path: path}

	problems, err := validation.ValidateConfigFile(path)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		report.Problems = problems
		return report, nil
	}

	cfg, err := projectconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := newAccumulator(cfg); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("thresholds: %v", err))
	}
	if _, err := gates.FromConfig(cfg.Gates); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("gates: %v", err))
	}
	if _, err := streaming.ParseAggregation(cfg.Report.HistoryAggregation); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("report.history_aggregation: %v", err))
	}
	if n := len(cfg.Input.ClassNames); n > 0 && n != cfg.Input.Classes {
		report.Problems = append(report.Problems,
			fmt.Sprintf("input.class_names: got %d names for %d classes", n, cfg.Input.Classes))
	}

	report.Valid = len(report.Problems) == 0
	return report, nil
}

func printCheckReport(w io.Writer, report *checkReport) {
	if report.Valid {
		fmt.Fprintf(w, "✅ %s is valid\n", report.Path) //nolint:errcheck
		return
	}
	fmt.Fprintf(w, "❌ %s\n", report.Path) //nolint:errcheck
	for _, p := range report.Problems {
		fmt.Fprintf(w, "   - %s\n", p) //nolint:errcheck
	}
}
