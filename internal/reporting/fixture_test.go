package reporting

import (
	"time"

	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/models"
)

func newTestReport() *models.EvaluationReport {
	return &models.EvaluationReport{
		Name:       "fraud-model",
		Timestamp:  time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		Datasets:   []string{"scores.csv"},
		Samples:    1234567,
		Batches:    1206,
		Thresholds: []float64{0, 0.5, 1},
		DurationMs: 3500,
		Classes: []models.ClassReport{
			{Index: 0, Name: "legit", Positives: 1200000, AUC: 0.93,
				Best: &metrics.OperatingPoint{Threshold: 0.5, F1: 0.91}},
			{Index: 1, Name: "fraud|card", Positives: 34567, AUC: 0.74},
		},
		Aggregates: map[string]float64{"macro": 0.835, "micro": 0.9},
		Gates: []models.GateResult{
			{Name: "macro-auc", Type: "min_auc", Passed: true, Value: 0.835, Limit: 0.8, Feedback: "ok", DurationMs: 2},
			{Name: "fraud-auc", Type: "min_auc", Passed: false, Value: 0.74, Limit: 0.8, Feedback: "AUC 0.7400 below 0.8000"},
			{Name: "recall", Type: "min_metric", Error: "unknown metric \"bogus\""},
		},
		BatchAUC: &models.BatchAUCReport{
			Aggregation: "micro",
			Summary:     metrics.Summary{Count: 1206, Mean: 0.9, StdDev: 0.01, Min: 0.86, Max: 0.94},
		},
		Status: models.StatusError,
	}
}
