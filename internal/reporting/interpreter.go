package reporting

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spboyer/streamauc/internal/models"
)

// InterpretAUC returns a plain-language label for an AUC value.
func InterpretAUC(auc float64) string {
	switch {
	case auc >= 0.9:
		return "Excellent (>=0.90)"
	case auc >= 0.8:
		return "Good (0.80-0.90)"
	case auc >= 0.7:
		return "Fair (0.70-0.80)"
	case auc > 0.5:
		return "Poor (0.50-0.70)"
	case auc == 0.5:
		return "No better than chance (0.50)"
	default:
		return "Worse than chance (<0.50)"
	}
}

// InterpretGates returns a human-readable explanation of gate results.
func InterpretGates(gates []models.GateResult) string {
	if len(gates) == 0 {
		return "No gates configured."
	}
	passed := 0
	for _, g := range gates {
		if g.Passed {
			passed++
		}
	}
	switch passed {
	case len(gates):
		return fmt.Sprintf("All %d gates passed.", len(gates))
	case 0:
		return fmt.Sprintf("All %d gates failed.", len(gates))
	default:
		return fmt.Sprintf("%d of %d gates passed.", passed, len(gates))
	}
}

// InterpretStability explains whether per-batch AUC is stable.
func InterpretStability(b *models.BatchAUCReport) string {
	if b == nil || b.Summary.Count < 2 {
		return "Not enough batches to judge stability."
	}
	if !b.Unstable {
		return fmt.Sprintf("Batch AUC is stable across %d batches (std dev %.4f).", b.Summary.Count, b.Summary.StdDev)
	}
	return fmt.Sprintf("Batch AUC varies across %d batches (%.4f to %.4f). Consider larger batches or checking for drift in the data.",
		b.Summary.Count, b.Summary.Min, b.Summary.Max)
}

// FormatSummaryReport produces a plain-language report from an EvaluationReport.
func FormatSummaryReport(report *models.EvaluationReport) string {
	var b strings.Builder

	duration := time.Duration(report.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")
	for _, agg := range sortedKeys(report.Aggregates) {
		v := report.Aggregates[agg]
		b.WriteString(fmt.Sprintf("%-14s %.4f - %s\n", agg+" AUC:", v, InterpretAUC(v)))
	}
	b.WriteString(fmt.Sprintf("Gates:         %s\n", InterpretGates(report.Gates)))
	b.WriteString(fmt.Sprintf("Stability:     %s\n", InterpretStability(report.BatchAUC)))
	b.WriteString(fmt.Sprintf("Duration:      %v\n", duration))

	if len(report.Classes) > 0 {
		b.WriteString("\nPer-Class Interpretation:\n")
		for _, c := range report.Classes {
			b.WriteString(fmt.Sprintf("  %s: AUC %.4f - %s\n", c.DisplayName(), c.AUC, InterpretAUC(c.AUC)))
			if c.Positives == 0 {
				b.WriteString("    No positive samples seen; AUC is not meaningful.\n")
			}
		}
	}

	if failed := report.FailedGates(); len(failed) > 0 {
		b.WriteString("\nFailed Gates:\n")
		for _, g := range failed {
			msg := g.Feedback
			if g.Error != "" {
				msg = g.Error
			}
			b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", g.Name, msg))
		}
	}

	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
