package streaming

import "fmt"

// MetricFunc derives a rate from one confusion cell.
type MetricFunc func(Confusion) float64

// Point is one (FPR, TPR) vertex of a ROC curve.
type Point struct {
	FPR float64 `json:"fpr"`
	TPR float64 `json:"tpr"`
}

// PRPoint is one vertex of a precision-recall curve.
type PRPoint struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// ratio divides and defines x/0 as 0 so curves stay finite at the extremes.
func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// TPR is tp / (tp + fn).
func TPR(c Confusion) float64 { return ratio(c.TP, c.Positives()) }

// Recall is an alias for TPR.
func Recall(c Confusion) float64 { return TPR(c) }

// FPR is fp / (fp + tn).
func FPR(c Confusion) float64 { return ratio(c.FP, c.Negatives()) }

// Specificity is tn / (fp + tn).
func Specificity(c Confusion) float64 { return ratio(c.TN, c.Negatives()) }

// Precision is tp / (tp + fp).
func Precision(c Confusion) float64 { return ratio(c.TP, c.PredictedPositives()) }

// Accuracy is (tp + tn) / total.
func Accuracy(c Confusion) float64 { return ratio(c.TP+c.TN, c.Total()) }

// F1 is the harmonic mean of precision and recall, written in counts:
// 2tp / (2tp + fp + fn).
func F1(c Confusion) float64 { return ratio(2*c.TP, 2*c.TP+c.FP+c.FN) }

// Metrics maps the names accepted in configuration to their functions.
var Metrics = map[string]MetricFunc{
	"tpr":         TPR,
	"recall":      Recall,
	"fpr":         FPR,
	"specificity": Specificity,
	"precision":   Precision,
	"accuracy":    Accuracy,
	"f1":          F1,
}

// LookupMetric returns the metric registered under name.
func LookupMetric(name string) (MetricFunc, error) {
	m, ok := Metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

// MetricCurve evaluates metric at every threshold, combining classes
// according to agg. classIndex is only consulted for AggregationNone.
func (a *Accumulator) MetricCurve(metric MetricFunc, classIndex int, agg Aggregation) ([]float64, error) {
	if err := a.checkAggregation(classIndex, agg); err != nil {
		return nil, err
	}
	out := make([]float64, len(a.thresholds))
	for t := range out {
		out[t] = a.metricAt(metric, t, classIndex, agg)
	}
	return out, nil
}

// MetricAt evaluates metric at a single threshold index.
func (a *Accumulator) MetricAt(metric MetricFunc, thresholdIndex, classIndex int, agg Aggregation) (float64, error) {
	if err := a.checkThreshold(thresholdIndex); err != nil {
		return 0, err
	}
	if err := a.checkAggregation(classIndex, agg); err != nil {
		return 0, err
	}
	return a.metricAt(metric, thresholdIndex, classIndex, agg), nil
}

// ROCCurve returns one (FPR, TPR) point per threshold, in threshold order.
func (a *Accumulator) ROCCurve(classIndex int, agg Aggregation) ([]Point, error) {
	fpr, err := a.MetricCurve(FPR, classIndex, agg)
	if err != nil {
		return nil, err
	}
	tpr, err := a.MetricCurve(TPR, classIndex, agg)
	if err != nil {
		return nil, err
	}
	points := make([]Point, len(fpr))
	for i := range points {
		points[i] = Point{FPR: fpr[i], TPR: tpr[i]}
	}
	return points, nil
}

// PrecisionRecallCurve returns one point per threshold, in threshold order.
// Precision is 0 where nothing is predicted positive.
func (a *Accumulator) PrecisionRecallCurve(classIndex int, agg Aggregation) ([]PRPoint, error) {
	precision, err := a.MetricCurve(Precision, classIndex, agg)
	if err != nil {
		return nil, err
	}
	recall, err := a.MetricCurve(Recall, classIndex, agg)
	if err != nil {
		return nil, err
	}
	points := make([]PRPoint, len(precision))
	for i := range points {
		points[i] = PRPoint{Threshold: a.thresholds[i], Precision: precision[i], Recall: recall[i]}
	}
	return points, nil
}

func (a *Accumulator) checkAggregation(classIndex int, agg Aggregation) error {
	switch agg {
	case AggregationNone:
		return a.checkClass(classIndex)
	case AggregationMacro, AggregationMicro, AggregationWeighted:
		return nil
	}
	return fmt.Errorf("streaming: unknown aggregation %s", agg)
}

// metricAt assumes t, classIndex and agg were validated.
func (a *Accumulator) metricAt(metric MetricFunc, t, classIndex int, agg Aggregation) float64 {
	switch agg {
	case AggregationNone:
		return metric(a.cell(t, classIndex))
	case AggregationMacro:
		var sum float64
		for c := 0; c < a.numClasses; c++ {
			sum += metric(a.cell(t, c))
		}
		return sum / float64(a.numClasses)
	case AggregationMicro:
		return metric(a.pooled(t))
	case AggregationWeighted:
		var sum float64
		var weights int64
		for c := 0; c < a.numClasses; c++ {
			cell := a.cell(t, c)
			w := cell.Positives()
			sum += float64(w) * metric(cell)
			weights += w
		}
		if weights == 0 {
			return 0
		}
		return sum / float64(weights)
	}
	panic(fmt.Sprintf("streaming: unchecked aggregation %s", agg))
}
