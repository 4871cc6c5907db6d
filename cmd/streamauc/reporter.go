package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/gates"
	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/reporting"
	"github.com/spboyer/streamauc/internal/statistics"
	"github.com/spboyer/streamauc/internal/streaming"
)

// reportInput carries what buildReport needs besides the collector.
type reportInput struct {
	Name             string
	Datasets         []string
	ClassNames       []string
	Gates            []gates.Gate
	Report           projectconfig.ReportConfig
	IncludeConfusion bool
	Resumed          bool
	Started          time.Time
}

// buildReport reads the collector once and turns its accumulator into a
// persisted report: per-class curves, aggregate AUCs, gate results and
// the spread of per-batch AUC.
func buildReport(ctx context.Context, c *collector.Collector, in reportInput) (*models.EvaluationReport, error) {
	stats := c.Stats()
	report := &models.EvaluationReport{
		Name:       in.Name,
		Timestamp:  time.Now().UTC(),
		Datasets:   in.Datasets,
		Batches:    stats.Batches,
		Rejected:   stats.Rejected,
		Resumed:    in.Resumed,
		Aggregates: map[string]float64{},
	}

	err := c.View(func(acc *streaming.Accumulator) error {
		report.Samples = acc.Samples()
		report.Thresholds = acc.Thresholds()

		for k := range acc.NumClasses() {
			class, err := classReport(acc, k)
			if err != nil {
				return err
			}
			if k < len(in.ClassNames) {
				class.Name = in.ClassNames[k]
			}
			report.Classes = append(report.Classes, class)
		}

		for _, agg := range streaming.Aggregations[1:] {
			v, err := acc.AUC(0, agg)
			if err != nil {
				return fmt.Errorf("computing %s AUC: %w", agg, err)
			}
			report.Aggregates[agg.String()] = v
		}

		if in.IncludeConfusion {
			report.Confusion = acc.ConfusionMatrix()
		}
		report.Gates = gates.Run(ctx, in.Gates, acc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if history := c.History(); len(history) > 0 {
		summary := metrics.Summarize(history)
		batch := &models.BatchAUCReport{
			Aggregation: in.Report.HistoryAggregation,
			Summary:     summary,
			Unstable:    metrics.IsUnstable(summary, in.Report.StabilityTolerance),
			Values:      history,
		}
		if len(history) > 1 {
			ci := statistics.BootstrapMean(history, statistics.DefaultConfidenceLevel, in.Report.Seed)
			batch.CI = &ci
		}
		report.BatchAUC = batch
	}

	report.Status = report.ComputeStatus()
	if !in.Started.IsZero() {
		report.DurationMs = time.Since(in.Started).Milliseconds()
	}
	return report, nil
}

func classReport(acc *streaming.Accumulator, k int) (models.ClassReport, error) {
	class := models.ClassReport{Index: k}

	positives, err := acc.ClassPositives(k)
	if err != nil {
		return class, err
	}
	class.Positives = positives

	if class.AUC, err = acc.AUC(k, streaming.AggregationNone); err != nil {
		return class, fmt.Errorf("computing AUC of class %d: %w", k, err)
	}
	if class.ROC, err = acc.ROCCurve(k, streaming.AggregationNone); err != nil {
		return class, fmt.Errorf("computing ROC of class %d: %w", k, err)
	}
	if class.Best, err = metrics.BestOperatingPoint(acc, k, streaming.F1); err != nil {
		return class, fmt.Errorf("finding best threshold of class %d: %w", k, err)
	}
	return class, nil
}

// writeReport renders report to w in the requested format.
func writeReport(w io.Writer, report *models.EvaluationReport, format string) error {
	switch format {
	case "table":
		reporting.WriteTable(w, report)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "markdown":
		_, err := io.WriteString(w, reporting.RenderMarkdown(report))
		return err
	case "html":
		page, err := reporting.RenderHTML(report)
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	default:
		return fmt.Errorf("unsupported format %q: must be table, json, markdown or html", format)
	}
}

func validFormat(format string) bool {
	switch format {
	case "table", "json", "markdown", "html":
		return true
	}
	return false
}

// saveReport writes the JSON report and, when requested, JUnit XML.
func saveReport(w io.Writer, report *models.EvaluationReport, outputPath, junitPath string) error {
	if outputPath != "" {
		if err := report.Save(outputPath); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(w, "Report saved to: %s\n", outputPath) //nolint:errcheck
	}
	if junitPath != "" {
		if err := reporting.WriteJUnitXML(report, junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit XML: %w", err)
		}
		fmt.Fprintf(w, "JUnit XML written to: %s\n", junitPath) //nolint:errcheck
	}
	return nil
}

// gateOutcome converts failed or errored gates into a GateFailureError.
func gateOutcome(report *models.EvaluationReport) error {
	failed := report.FailedGates()
	if len(failed) == 0 {
		return nil
	}
	return &GateFailureError{
		Message: fmt.Sprintf("evaluation completed with %d of %d gate(s) not passing", len(failed), len(report.Gates)),
	}
}
