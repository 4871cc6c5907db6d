package main

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalCommand_JSONReport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)

	stdout, _, err := runCLI(t, "eval", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var report models.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))

	assert.Equal(t, "fixture", report.Name)
	assert.Equal(t, int64(4), report.Samples)
	assert.Equal(t, []float64{0, 0.5, 1}, report.Thresholds)
	assert.Equal(t, models.StatusPassed, report.Status)

	require.Len(t, report.Classes, 2)
	assert.Equal(t, "negative", report.Classes[0].Name)
	assert.InDelta(t, 0.5, report.Classes[0].AUC, 1e-9)
	assert.Equal(t, "positive", report.Classes[1].Name)
	assert.InDelta(t, 1.0, report.Classes[1].AUC, 1e-9)
	assert.Equal(t, int64(2), report.Classes[1].Positives)

	best := report.Classes[1].Best
	require.NotNil(t, best)
	assert.Equal(t, 0.5, best.Threshold)
	assert.Equal(t, 1.0, best.F1)

	for _, agg := range []string{"macro", "micro", "weighted"} {
		assert.InDelta(t, 0.75, report.Aggregates[agg], 1e-9, agg)
	}

	require.Len(t, report.Gates, 1)
	assert.True(t, report.Gates[0].Passed)
	assert.Nil(t, report.Confusion)
}

func TestEvalCommand_GateFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.9)

	stdout, _, err := runCLI(t, "eval", "--config", cfgPath)
	require.Error(t, err)

	var gateErr *GateFailureError
	require.True(t, errors.As(err, &gateErr), "expected GateFailureError, got %v", err)
	assert.Contains(t, stdout, "✗ fail")
	assert.Contains(t, stdout, "macro-auc")
}

func TestEvalCommand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)

	stdout, _, err := runCLI(t, "eval", "--config", cfgPath, "-f", "json",
		"--threshold-values", "0,0.5", "--name", "override", "--confusion")
	require.NoError(t, err)

	var report models.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "override", report.Name)
	assert.Equal(t, []float64{0, 0.5}, report.Thresholds)
	require.Len(t, report.Confusion, 2)
	require.Len(t, report.Confusion[1], 2)
	assert.Equal(t, int64(2), report.Confusion[1][1].TP)
	assert.Equal(t, int64(2), report.Confusion[1][1].TN)
}

func TestEvalCommand_DatasetArgs(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "scores.csv", fixtureCSV)
	cfgPath := writeFile(t, dir, "empty.yaml", "thresholds:\n  values: [0, 0.5, 1]\n")

	stdout, _, err := runCLI(t, "eval", "--config", cfgPath, "-f", "json", data)
	require.NoError(t, err)

	var report models.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "scores", report.Name)
	assert.Equal(t, []string{data}, report.Datasets)
	assert.Empty(t, report.Gates)
}

func TestEvalCommand_WritesOutputAndJUnit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)
	outPath := filepath.Join(dir, "out", "report.json")
	junitPath := filepath.Join(dir, "junit.xml")

	_, stderr, err := runCLI(t, "eval", "--config", cfgPath, "-o", outPath, "--junit", junitPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Report saved to: "+outPath)

	saved, err := models.LoadReport(outPath)
	require.NoError(t, err)
	assert.Equal(t, int64(4), saved.Samples)

	data, err := os.ReadFile(junitPath)
	require.NoError(t, err)
	var suites reporting.JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &suites))
	assert.Equal(t, 1, suites.Tests)
	assert.Equal(t, 0, suites.Failures)
}

func TestEvalCommand_ResumeReusesCompleteCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)
	ckptDir := filepath.Join(dir, "ckpt")

	args := []string{"eval", "--config", cfgPath, "-f", "json", "--resume", "--checkpoint-dir", ckptDir}

	stdout, _, err := runCLI(t, args...)
	require.NoError(t, err)
	var first models.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &first))
	assert.False(t, first.Resumed)

	entries, err := os.ReadDir(ckptDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	stdout, _, err = runCLI(t, args...)
	require.NoError(t, err)
	var second models.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &second))
	assert.True(t, second.Resumed)
	assert.Equal(t, first.Samples, second.Samples)
	assert.InDelta(t, first.Aggregates["macro"], second.Aggregates["macro"], 1e-12)
}

func TestEvalCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)
	empty := writeFile(t, dir, "empty/.streamauc.yaml", "name: empty\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad format", []string{"eval", "--config", cfgPath, "-f", "xml"}, `unsupported format "xml"`},
		{"no datasets", []string{"eval", "--config", empty}, "no datasets given"},
		{"missing file", []string{"eval", "--config", cfgPath, filepath.Join(dir, "nope.csv")}, "nope.csv"},
		{"resume with range", []string{"eval", "--config", cfgPath, "--resume", "--start", "2"}, "--resume cannot be combined"},
		{"threshold out of range", []string{"eval", "--config", cfgPath, "--threshold-values", "0,1.5"}, "outside [0, 1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var gateErr *GateFailureError
			assert.False(t, errors.As(err, &gateErr))
		})
	}
}

func TestEvalCommand_OutputDirTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scores.csv", fixtureCSV)
	cfgPath := writeFile(t, dir, ".streamauc.yaml", `name: nightly run
datasets: [scores.csv]
thresholds:
  values: [0, 0.5, 1]
output:
  dir: `+filepath.Join(dir, "reports")+`
  file_name: "{{.Name}}-{{.Status}}.json"
`)

	_, _, err := runCLI(t, "eval", "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "reports", "nightly-run-passed.json"))
}
