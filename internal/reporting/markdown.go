package reporting

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderMarkdown renders the report as a Markdown document.
func RenderMarkdown(report *models.EvaluationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Name)
	fmt.Fprintf(&b, "- **Status:** %s\n", report.Status)
	fmt.Fprintf(&b, "- **Samples:** %s in %s batches\n", FormatCount(report.Samples), FormatCount(report.Batches))
	fmt.Fprintf(&b, "- **Thresholds:** %d\n", len(report.Thresholds))
	if !report.Timestamp.IsZero() {
		fmt.Fprintf(&b, "- **Evaluated:** %s\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	if len(report.Datasets) > 0 {
		fmt.Fprintf(&b, "- **Datasets:** %s\n", strings.Join(quoteAll(report.Datasets), ", "))
	}

	b.WriteString("\n## Classes\n\n")
	b.WriteString("| Class | Positives | AUC | Best threshold | F1 | Interpretation |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, c := range report.Classes {
		threshold, f1 := "-", "-"
		if c.Best != nil {
			threshold = fmt.Sprintf("%.4f", c.Best.Threshold)
			f1 = fmt.Sprintf("%.4f", c.Best.F1)
		}
		fmt.Fprintf(&b, "| %s | %s | %.4f | %s | %s | %s |\n",
			escapeCell(c.DisplayName()), FormatCount(c.Positives), c.AUC, threshold, f1, InterpretAUC(c.AUC))
	}

	if len(report.Aggregates) > 0 {
		b.WriteString("\n## Aggregates\n\n")
		b.WriteString("| Aggregation | AUC |\n|---|---:|\n")
		for _, agg := range sortedKeys(report.Aggregates) {
			fmt.Fprintf(&b, "| %s | %.4f |\n", agg, report.Aggregates[agg])
		}
	}

	if report.BatchAUC != nil {
		b.WriteString("\n## Batch stability\n\n")
		s := report.BatchAUC.Summary
		fmt.Fprintf(&b, "%s AUC over %d batches: mean %.4f, std dev %.4f, range %.4f to %.4f.",
			report.BatchAUC.Aggregation, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
		if ci := report.BatchAUC.CI; ci != nil {
			fmt.Fprintf(&b, " %.0f%% CI [%.4f, %.4f].", ci.ConfidenceLevel*100, ci.Lower, ci.Upper)
		}
		b.WriteString("\n")
	}

	if len(report.Gates) > 0 {
		b.WriteString("\n## Gates\n\n")
		b.WriteString("| Gate | Type | Result | Value | Limit | Feedback |\n")
		b.WriteString("|---|---|---|---:|---:|---|\n")
		for _, g := range report.Gates {
			result := "✅ pass"
			feedback := g.Feedback
			switch {
			case g.Error != "":
				result = "⚠️ error"
				feedback = g.Error
			case !g.Passed:
				result = "❌ fail"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %.4f | %.4f | %s |\n",
				escapeCell(g.Name), g.Type, result, g.Value, g.Limit, escapeCell(feedback))
		}
	}

	return b.String()
}

// RenderHTML renders the Markdown report to a standalone HTML page.
func RenderHTML(report *models.EvaluationReport) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(report)), &body); err != nil {
		return nil, fmt.Errorf("rendering HTML report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(report.Name))
	page.WriteString("<style>body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto}" +
		"table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25rem .5rem}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "`" + v + "`"
	}
	return out
}
