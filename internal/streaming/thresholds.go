package streaming

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linspace returns n evenly spaced thresholds covering [0, 1], both ends
// included.
func Linspace(n int) ([]float64, error) {
	if n < 2 {
		return nil, &ConfigurationError{
			Field:  "threshold count",
			Reason: fmt.Sprintf("need at least 2 thresholds for an even grid, got %d", n),
		}
	}
	out := make([]float64, n)
	floats.Span(out, 0, 1)
	return out, nil
}

// validateThresholds checks that values is non-empty, inside [0, 1] and
// non-decreasing.
func validateThresholds(values []float64) error {
	if len(values) == 0 {
		return &ConfigurationError{Field: "thresholds", Reason: "at least one threshold is required"}
	}
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &ConfigurationError{
				Field:  "thresholds",
				Reason: fmt.Sprintf("threshold[%d] = %v is outside [0, 1]", i, v),
			}
		}
		if i > 0 && v < values[i-1] {
			return &ConfigurationError{
				Field:  "thresholds",
				Reason: fmt.Sprintf("threshold[%d] = %v is smaller than threshold[%d] = %v", i, v, i-1, values[i-1]),
			}
		}
	}
	return nil
}

// clearedCount returns how many thresholds a score reaches, i.e. the number
// of t with score >= t. Thresholds are sorted ascending, so the cleared ones
// form a prefix. NaN clears nothing.
func clearedCount(thresholds []float64, score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	lo, hi := 0, len(thresholds)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if thresholds[mid] <= score {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
