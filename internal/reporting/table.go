package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/streamauc/internal/baseline"
	"github.com/spboyer/streamauc/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// countPrinter groups digits in sample counts ("1,234,567").
var countPrinter = message.NewPrinter(language.English)

// FormatCount formats an integer count with thousands separators.
func FormatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}

// WriteTable prints the report as aligned terminal tables.
func WriteTable(w io.Writer, report *models.EvaluationReport) {
	fmt.Fprintf(w, "%s\n", report.Name)                                                  //nolint:errcheck
	fmt.Fprintf(w, "Samples: %s   Batches: %s   Thresholds: %d\n",                       //nolint:errcheck
		FormatCount(report.Samples), FormatCount(report.Batches), len(report.Thresholds))
	if report.Rejected > 0 {
		fmt.Fprintf(w, "Rejected batches: %s\n", FormatCount(report.Rejected)) //nolint:errcheck
	}
	fmt.Fprintln(w) //nolint:errcheck

	rows := [][]string{{"CLASS", "POSITIVES", "AUC", "BEST THRESHOLD", "F1", ""}}
	for _, c := range report.Classes {
		threshold, f1 := "-", "-"
		if c.Best != nil {
			threshold = fmt.Sprintf("%.4f", c.Best.Threshold)
			f1 = fmt.Sprintf("%.4f", c.Best.F1)
		}
		rows = append(rows, []string{
			truncateName(c.DisplayName(), 28),
			FormatCount(c.Positives),
			fmt.Sprintf("%.4f", c.AUC),
			threshold,
			f1,
			InterpretAUC(c.AUC),
		})
	}
	writeRows(w, rows)

	if len(report.Aggregates) > 0 {
		fmt.Fprintln(w) //nolint:errcheck
		rows = [][]string{{"AGGREGATION", "AUC", ""}}
		for _, agg := range sortedKeys(report.Aggregates) {
			v := report.Aggregates[agg]
			rows = append(rows, []string{agg, fmt.Sprintf("%.4f", v), InterpretAUC(v)})
		}
		writeRows(w, rows)
	}

	if len(report.Gates) > 0 {
		fmt.Fprintln(w) //nolint:errcheck
		rows = [][]string{{"GATE", "STATUS", "VALUE", "LIMIT"}}
		for _, g := range report.Gates {
			status := "✓ pass"
			switch {
			case g.Error != "":
				status = "! error"
			case !g.Passed:
				status = "✗ fail"
			}
			rows = append(rows, []string{
				truncateName(g.Name, 32),
				status,
				fmt.Sprintf("%.4f", g.Value),
				fmt.Sprintf("%.4f", g.Limit),
			})
		}
		writeRows(w, rows)
	}
	fmt.Fprintln(w) //nolint:errcheck
}

// WriteComparisonTable prints a baseline comparison.
func WriteComparisonTable(w io.Writer, cmp *baseline.Comparison) {
	fmt.Fprintf(w, "%s → %s\n\n", cmp.Baseline, cmp.Candidate) //nolint:errcheck

	rows := [][]string{{"CLASS", "BASELINE", "CANDIDATE", "DELTA", "GAIN"}}
	for _, c := range cmp.Classes {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("class %d", c.Index)
		}
		if c.Status == models.StatusNA {
			rows = append(rows, []string{name, fmtOptional(c.Baseline), fmtOptional(c.Candidate), string(models.StatusNA), ""})
			continue
		}
		rows = append(rows, []string{
			truncateName(name, 28),
			fmt.Sprintf("%.4f", c.Baseline),
			fmt.Sprintf("%.4f", c.Candidate),
			fmt.Sprintf("%+.4f", c.Delta),
			fmt.Sprintf("%+.1f%%", c.Gain*100),
		})
	}
	for _, a := range cmp.Aggregates {
		rows = append(rows, []string{
			a.Aggregation,
			fmt.Sprintf("%.4f", a.Baseline),
			fmt.Sprintf("%.4f", a.Candidate),
			fmt.Sprintf("%+.4f", a.Delta),
			"",
		})
	}
	writeRows(w, rows)

	fmt.Fprintf(w, "\nImprovement: %+.4f\n", cmp.Improvement) //nolint:errcheck
	if cmp.BatchDelta != nil {
		verdict := "not significant"
		if cmp.Significant {
			verdict = "significant"
		}
		fmt.Fprintf(w, "Batch AUC delta: %+.4f [%.4f, %.4f] (%s)\n", //nolint:errcheck
			cmp.BatchDelta.Mean, cmp.BatchDelta.Lower, cmp.BatchDelta.Upper, verdict)
	}
	for _, warn := range cmp.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn) //nolint:errcheck
	}
}

func fmtOptional(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

// writeRows prints rows with columns padded to their widest display width.
func writeRows(w io.Writer, rows [][]string) {
	widths := map[int]int{}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i > 0 {
				line.WriteString("  ")
			}
			if i == len(row)-1 {
				line.WriteString(cell)
				continue
			}
			line.WriteString(padRight(cell, widths[i]))
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " ")) //nolint:errcheck
	}
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
