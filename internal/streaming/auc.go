package streaming

import (
	"cmp"
	"math"
	"slices"
)

// AUC returns the trapezoidal area under the ROC curve of classIndex (or of
// the aggregated curve). The curve is swept from the highest threshold to
// the lowest, which is the order in which FPR grows. The sweep starts at
// (0, 0) and ends at (1, 1) whatever the threshold grid holds, so a single
// threshold still encloses area.
func (a *Accumulator) AUC(classIndex int, agg Aggregation) (float64, error) {
	points, err := a.ROCCurve(classIndex, agg)
	if err != nil {
		return 0, err
	}
	slices.Reverse(points)
	curve := make([]Point, 0, len(points)+2)
	curve = append(curve, Point{FPR: 0, TPR: 0})
	curve = append(curve, points...)
	curve = append(curve, Point{FPR: 1, TPR: 1})
	return TrapezoidAUC(curve), nil
}

// TrapezoidAUC integrates TPR over FPR. Points are stably sorted by FPR, so
// points sharing an FPR keep their input order and TPR is never used as a
// tie-breaker.
func TrapezoidAUC(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(x, y Point) int {
		return cmp.Compare(x.FPR, y.FPR)
	})

	var area float64
	for i := 1; i < len(sorted); i++ {
		dx := sorted[i].FPR - sorted[i-1].FPR
		area += dx * (sorted[i].TPR + sorted[i-1].TPR) / 2
	}
	// rounding on a full-span curve can land a hair outside [0, 1]
	return math.Max(0, math.Min(1, area))
}
