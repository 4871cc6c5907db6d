package webapi

import (
	"time"

	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/streaming"
)

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SummaryResponse describes the live accumulator.
type SummaryResponse struct {
	Samples    int64              `json:"samples"`
	Batches    int64              `json:"batches"`
	Rejected   int64              `json:"rejected"`
	Classes    int                `json:"classes"`
	Thresholds int                `json:"thresholds"`
	Positives  []int64            `json:"positives"`
	ClassAUC   []float64          `json:"classAuc"`
	AUC        map[string]float64 `json:"auc"`
	BatchAUC   *metrics.Summary   `json:"batchAuc,omitempty"`
}

// ConfusionResponse is one confusion cell with derived rates.
type ConfusionResponse struct {
	Threshold      float64             `json:"threshold"`
	ThresholdIndex int                 `json:"thresholdIndex"`
	Class          int                 `json:"class"`
	Aggregation    string              `json:"aggregation"`
	Confusion      streaming.Confusion `json:"confusion"`
	TPR            float64             `json:"tpr"`
	FPR            float64             `json:"fpr"`
	Precision      float64             `json:"precision"`
	F1             float64             `json:"f1"`
	Accuracy       float64             `json:"accuracy"`
}

// ROCResponse is a ROC curve with its area.
type ROCResponse struct {
	Class       int               `json:"class"`
	Aggregation string            `json:"aggregation"`
	AUC         float64           `json:"auc"`
	Thresholds  []float64         `json:"thresholds"`
	Points      []streaming.Point `json:"points"`
}

// PRResponse is a precision-recall curve.
type PRResponse struct {
	Class       int                 `json:"class"`
	Aggregation string              `json:"aggregation"`
	Points      []streaming.PRPoint `json:"points"`
}

// AUCResponse is a single AUC value.
type AUCResponse struct {
	Class       int     `json:"class"`
	Aggregation string  `json:"aggregation"`
	AUC         float64 `json:"auc"`
}

// BatchRequest is a JSON batch posted for ingestion.
type BatchRequest struct {
	Labels []int       `json:"labels"`
	Scores [][]float64 `json:"scores"`
}

// BatchResponse acknowledges an accepted batch.
type BatchResponse struct {
	Accepted int   `json:"accepted"`
	Samples  int64 `json:"samples"`
}

// ReportSummary is the API response for a stored report in the list.
type ReportSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Samples   int64     `json:"samples"`
	MacroAUC  float64   `json:"macroAuc"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
