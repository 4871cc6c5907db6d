package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/statistics"
	"github.com/spboyer/streamauc/internal/streaming"
)

// Status represents the outcome of an evaluation or a single gate.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
	// StatusNA is used in comparison reports when a class is missing on one side.
	StatusNA Status = "n/a"
)

// EvaluationReport is the persisted result of one evaluation run.
type EvaluationReport struct {
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Datasets   []string  `json:"datasets"`
	Samples    int64     `json:"samples"`
	Batches    int64     `json:"batches"`
	Rejected   int64     `json:"rejected,omitempty"`
	Thresholds []float64 `json:"thresholds"`
	Resumed    bool      `json:"resumed,omitempty"`
	DurationMs int64     `json:"duration_ms"`

	Classes    []ClassReport           `json:"classes"`
	Aggregates map[string]float64      `json:"aggregates"`
	Gates      []GateResult            `json:"gates,omitempty"`
	BatchAUC   *BatchAUCReport         `json:"batch_auc,omitempty"`
	Status     Status                  `json:"status"`
	Metadata   map[string]any          `json:"metadata,omitempty"`
	Confusion  [][]streaming.Confusion `json:"confusion,omitempty"`
}

// ClassReport holds the one-vs-rest results of a single class.
type ClassReport struct {
	Index     int                     `json:"index"`
	Name      string                  `json:"name,omitempty"`
	Positives int64                   `json:"positives"`
	AUC       float64                 `json:"auc"`
	ROC       []streaming.Point       `json:"roc"`
	Best      *metrics.OperatingPoint `json:"best_operating_point,omitempty"`
}

// BatchAUCReport describes how AUC varied from batch to batch.
type BatchAUCReport struct {
	Aggregation string                         `json:"aggregation"`
	Summary     metrics.Summary                `json:"summary"`
	CI          *statistics.ConfidenceInterval `json:"confidence_interval,omitempty"`
	Unstable    bool                           `json:"unstable,omitempty"`
	Values      []float64                      `json:"values,omitempty"`
}

// DisplayName returns the class name, falling back to its index.
func (c ClassReport) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("class %d", c.Index)
}

// AggregateAUC returns the aggregate AUC stored under agg, if any.
func (r *EvaluationReport) AggregateAUC(agg streaming.Aggregation) (float64, bool) {
	v, ok := r.Aggregates[agg.String()]
	return v, ok
}

// ClassByIndex returns the report for class index i, or nil.
func (r *EvaluationReport) ClassByIndex(i int) *ClassReport {
	for k := range r.Classes {
		if r.Classes[k].Index == i {
			return &r.Classes[k]
		}
	}
	return nil
}

// FailedGates returns the gates that did not pass.
func (r *EvaluationReport) FailedGates() []GateResult {
	var failed []GateResult
	for _, g := range r.Gates {
		if !g.Passed {
			failed = append(failed, g)
		}
	}
	return failed
}

// ComputeStatus derives the report status from its gates.
func (r *EvaluationReport) ComputeStatus() Status {
	for _, g := range r.Gates {
		if g.Error != "" {
			return StatusError
		}
	}
	if len(r.FailedGates()) > 0 {
		return StatusFailed
	}
	return StatusPassed
}

// LoadReport reads an EvaluationReport from a JSON file.
func LoadReport(path string) (*EvaluationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var report EvaluationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	if len(report.Thresholds) == 0 {
		return nil, fmt.Errorf("report %s has no thresholds", path)
	}
	return &report, nil
}

// Save writes the report as indented JSON, creating parent directories.
func (r *EvaluationReport) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
