package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a series of per-batch values.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes count, mean, sample standard deviation and range.
// Returns the zero Summary for empty input; StdDev is 0 for one value.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

// IsUnstable returns true when per-batch values spread more than tolerance
// around their mean, i.e. the metric depends on how the stream was cut.
func IsUnstable(s Summary, tolerance float64) bool {
	if s.Count < 2 {
		return false
	}
	return s.StdDev > tolerance || math.Abs(s.Max-s.Min) > 4*tolerance
}
