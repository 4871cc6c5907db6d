package metrics

import (
	"math"

	"github.com/spboyer/streamauc/internal/streaming"
)

// OperatingPoint holds classification metrics for a single threshold.
type OperatingPoint struct {
	Threshold float64 `json:"threshold"`
	TP        int64   `json:"true_positives"`
	FP        int64   `json:"false_positives"`
	TN        int64   `json:"true_negatives"`
	FN        int64   `json:"false_negatives"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// ComputeOperatingPoint derives precision, recall, F1 and accuracy from one
// confusion cell, rounded to four places. Returns nil for an empty cell.
func ComputeOperatingPoint(threshold float64, c streaming.Confusion) *OperatingPoint {
	if c.Total() == 0 {
		return nil
	}
	return &OperatingPoint{
		Threshold: threshold,
		TP:        c.TP,
		FP:        c.FP,
		TN:        c.TN,
		FN:        c.FN,
		Precision: roundTo4(streaming.Precision(c)),
		Recall:    roundTo4(streaming.Recall(c)),
		F1:        roundTo4(streaming.F1(c)),
		Accuracy:  roundTo4(streaming.Accuracy(c)),
	}
}

// BestOperatingPoint scans every threshold of classIndex and returns the
// one maximizing objective. Ties keep the lowest threshold. Returns nil
// when nothing has been accumulated.
func BestOperatingPoint(acc *streaming.Accumulator, classIndex int, objective streaming.MetricFunc) (*OperatingPoint, error) {
	if acc.Samples() == 0 {
		if _, err := acc.ConfusionAt(0, classIndex); err != nil {
			return nil, err
		}
		return nil, nil
	}

	thresholds := acc.Thresholds()
	best, bestScore := -1, math.Inf(-1)
	var bestCell streaming.Confusion
	for t := range thresholds {
		cell, err := acc.ConfusionAt(t, classIndex)
		if err != nil {
			return nil, err
		}
		if s := objective(cell); s > bestScore {
			best, bestScore, bestCell = t, s, cell
		}
	}
	return ComputeOperatingPoint(thresholds[best], bestCell), nil
}

// NearestThreshold returns the index of the threshold closest to target.
// Equal distances resolve to the lower index.
func NearestThreshold(thresholds []float64, target float64) int {
	best := 0
	for i, t := range thresholds {
		if math.Abs(t-target) < math.Abs(thresholds[best]-target) {
			best = i
		}
	}
	return best
}

func roundTo4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
