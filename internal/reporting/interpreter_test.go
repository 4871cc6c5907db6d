package reporting

import (
	"testing"

	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInterpretAUC(t *testing.T) {
	tests := []struct {
		auc  float64
		want string
	}{
		{1.0, "Excellent (>=0.90)"},
		{0.9, "Excellent (>=0.90)"},
		{0.85, "Good (0.80-0.90)"},
		{0.75, "Fair (0.70-0.80)"},
		{0.6, "Poor (0.50-0.70)"},
		{0.5, "No better than chance (0.50)"},
		{0.2, "Worse than chance (<0.50)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InterpretAUC(tt.auc), "auc=%v", tt.auc)
	}
}

func TestInterpretGates(t *testing.T) {
	pass := models.GateResult{Passed: true}
	fail := models.GateResult{}

	assert.Equal(t, "No gates configured.", InterpretGates(nil))
	assert.Equal(t, "All 2 gates passed.", InterpretGates([]models.GateResult{pass, pass}))
	assert.Equal(t, "All 1 gates failed.", InterpretGates([]models.GateResult{fail}))
	assert.Equal(t, "1 of 2 gates passed.", InterpretGates([]models.GateResult{pass, fail}))
}

func TestInterpretStability(t *testing.T) {
	assert.Contains(t, InterpretStability(nil), "Not enough batches")
	assert.Contains(t, InterpretStability(&models.BatchAUCReport{Summary: metrics.Summary{Count: 1}}), "Not enough batches")

	stable := &models.BatchAUCReport{Summary: metrics.Summary{Count: 10, StdDev: 0.002}}
	assert.Contains(t, InterpretStability(stable), "stable across 10 batches")

	unstable := &models.BatchAUCReport{Summary: metrics.Summary{Count: 4, Min: 0.6, Max: 0.9}, Unstable: true}
	assert.Contains(t, InterpretStability(unstable), "varies across 4 batches (0.6000 to 0.9000)")
}

func TestFormatSummaryReport(t *testing.T) {
	out := FormatSummaryReport(newTestReport())

	assert.Contains(t, out, "=== Interpretation ===")
	assert.Contains(t, out, "macro AUC:")
	assert.Contains(t, out, "1 of 3 gates passed.")
	assert.Contains(t, out, "Duration:      3.5s")
	assert.Contains(t, out, "legit: AUC 0.9300 - Excellent")
	assert.Contains(t, out, "✗ fraud-auc: AUC 0.7400 below 0.8000")
	assert.Contains(t, out, "✗ recall: unknown metric")
}

func TestFormatSummaryReportNoPositives(t *testing.T) {
	report := &models.EvaluationReport{
		Classes: []models.ClassReport{{Index: 2, AUC: 0}},
	}
	out := FormatSummaryReport(report)
	assert.Contains(t, out, "class 2: AUC 0.0000")
	assert.Contains(t, out, "No positive samples seen")
	assert.NotContains(t, out, "Failed Gates")
}
