package streaming

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

// weightedFixture: class 0 has three positives, class 1 has one, so macro,
// micro and weighted averages all differ at threshold 0.5.
func weightedFixture(t *testing.T) *Accumulator {
	t.Helper()
	acc, err := New([]float64{0.5}, 2)
	require.NoError(t, err)
	require.NoError(t, acc.UpdateRows(
		[]int{0, 0, 0, 1},
		[][]float64{{0.9, 0.1}, {0.9, 0.1}, {0.1, 0.9}, {0.2, 0.6}},
	))
	return acc
}

func TestMetricAt_Aggregations(t *testing.T) {
	acc := weightedFixture(t)

	tests := []struct {
		name   string
		metric MetricFunc
		class  int
		agg    Aggregation
		want   float64
	}{
		{"tpr class 0", TPR, 0, AggregationNone, 2.0 / 3.0},
		{"tpr class 1", TPR, 1, AggregationNone, 1},
		{"tpr macro", TPR, 0, AggregationMacro, 5.0 / 6.0},
		{"tpr micro", TPR, 0, AggregationMicro, 0.75},
		{"tpr weighted", TPR, 0, AggregationWeighted, 0.75},
		{"fpr class 1", FPR, 1, AggregationNone, 1.0 / 3.0},
		{"fpr macro", FPR, 0, AggregationMacro, 1.0 / 6.0},
		{"fpr micro", FPR, 0, AggregationMicro, 0.25},
		{"fpr weighted", FPR, 0, AggregationWeighted, 1.0 / 12.0},
		{"precision class 0", Precision, 0, AggregationNone, 1},
		{"precision class 1", Precision, 1, AggregationNone, 0.5},
		{"f1 class 0", F1, 0, AggregationNone, 0.8},
		{"accuracy class 0", Accuracy, 0, AggregationNone, 0.75},
		{"specificity class 1", Specificity, 1, AggregationNone, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := acc.MetricAt(tt.metric, 0, tt.class, tt.agg)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, epsilon)
		})
	}
}

func TestMetricCurve_Validation(t *testing.T) {
	acc := weightedFixture(t)

	_, err := acc.MetricCurve(TPR, 5, AggregationNone)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// class index is ignored once classes are aggregated
	_, err = acc.MetricCurve(TPR, 5, AggregationMacro)
	assert.NoError(t, err)

	_, err = acc.MetricCurve(TPR, 0, Aggregation(42))
	assert.Error(t, err)

	_, err = acc.MetricAt(TPR, 1, 0, AggregationNone)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRates_ZeroDenominators(t *testing.T) {
	assert.Zero(t, TPR(Confusion{FP: 3, TN: 1}))
	assert.Zero(t, FPR(Confusion{TP: 3, FN: 1}))
	assert.Zero(t, Precision(Confusion{TN: 4, FN: 2}))
	assert.Zero(t, F1(Confusion{TN: 4}))
	assert.Zero(t, Accuracy(Confusion{}))

	acc, err := NewLinspace(4, 2)
	require.NoError(t, err)
	for _, agg := range Aggregations {
		points, err := acc.ROCCurve(0, agg)
		require.NoError(t, err)
		for _, p := range points {
			assert.Zero(t, p.FPR)
			assert.Zero(t, p.TPR)
		}
	}
}

func TestROCCurve_TwoClass(t *testing.T) {
	acc := newTwoClass(t)
	want := []Point{{FPR: 1, TPR: 1}, {FPR: 0, TPR: 1}, {FPR: 0, TPR: 0}}

	for _, agg := range Aggregations {
		t.Run(agg.String(), func(t *testing.T) {
			got, err := acc.ROCCurve(0, agg)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPrecisionRecallCurve(t *testing.T) {
	acc := newTwoClass(t)
	got, err := acc.PrecisionRecallCurve(0, AggregationNone)
	require.NoError(t, err)

	want := []PRPoint{
		{Threshold: 0, Precision: 0.5, Recall: 1},
		{Threshold: 0.5, Precision: 1, Recall: 1},
		{Threshold: 1, Precision: 0, Recall: 0},
	}
	assert.Equal(t, want, got)
}

func TestAUC_TwoClass(t *testing.T) {
	acc := newTwoClass(t)
	for _, agg := range Aggregations {
		got, err := acc.AUC(1, agg)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, epsilon, agg.String())
	}

	_, err := acc.AUC(2, AggregationNone)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTrapezoidAUC_TiesKeepInputOrder(t *testing.T) {
	// same vertices, different order among the FPR=0 tie
	assert.InDelta(t, 0.5, TrapezoidAUC([]Point{{0, 1}, {0, 0}, {1, 1}}), epsilon)
	assert.InDelta(t, 1.0, TrapezoidAUC([]Point{{0, 0}, {0, 1}, {1, 1}}), epsilon)

	// unsorted FPR is sorted before integrating
	assert.InDelta(t, 0.5, TrapezoidAUC([]Point{{1, 1}, {0, 0}}), epsilon)

	assert.Zero(t, TrapezoidAUC(nil))
	assert.Zero(t, TrapezoidAUC([]Point{{0.3, 0.7}}))
}

func TestTrapezoidAUC_DoesNotReorderInput(t *testing.T) {
	in := []Point{{1, 1}, {0, 1}, {0, 0}}
	orig := slices.Clone(in)
	TrapezoidAUC(in)
	assert.Equal(t, orig, in)
}

func TestAUC_MatchesRankStatistic(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	const n = 400

	labels := make([]int, n)
	rows := make([][]float64, n)
	for i := range rows {
		labels[i] = rng.Intn(2)
		// rounded scores produce ties; positives skew higher
		s := rng.Float64() * 0.9
		if labels[i] == 0 {
			s = math.Min(0.98, s+0.05)
		}
		s = math.Round(s*100) / 100
		rows[i] = []float64{s, 1 - s}
	}

	var thresholds []float64
	for _, row := range rows {
		thresholds = append(thresholds, row[0])
	}
	slices.Sort(thresholds)
	thresholds = slices.Compact(thresholds)

	acc, err := New(thresholds, 2)
	require.NoError(t, err)
	require.NoError(t, acc.UpdateRows(labels, rows))

	// probability a positive outranks a negative, ties counted half
	var wins, pairs float64
	for i := range rows {
		if labels[i] != 0 {
			continue
		}
		for j := range rows {
			if labels[j] == 0 {
				continue
			}
			pairs++
			switch {
			case rows[i][0] > rows[j][0]:
				wins++
			case rows[i][0] == rows[j][0]:
				wins += 0.5
			}
		}
	}

	got, err := acc.AUC(0, AggregationNone)
	require.NoError(t, err)
	assert.InDelta(t, wins/pairs, got, 1e-9)
}

func TestAUC_HardPredictions(t *testing.T) {
	// scores are exactly 0 or 1: one positive and one negative each side
	labels := []int{1, 1, 0, 0}
	rows := [][]float64{{0, 1}, {1, 0}, {0, 1}, {1, 0}}

	linspace, err := NewLinspace(101, 2)
	require.NoError(t, err)
	single, err := New([]float64{0.5}, 2)
	require.NoError(t, err)

	tests := []struct {
		name string
		acc  *Accumulator
	}{
		{"default linspace", linspace},
		{"single threshold", single},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.acc.UpdateRows(labels, rows))

			// positive-negative pairs: one win, two ties, one loss
			got, err := tt.acc.AUC(1, AggregationNone)
			require.NoError(t, err)
			assert.InDelta(t, 0.5, got, epsilon)

			got, err = tt.acc.AUC(0, AggregationMacro)
			require.NoError(t, err)
			assert.InDelta(t, 0.5, got, epsilon)
		})
	}
}

func TestAUC_AlwaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for trial := 0; trial < 25; trial++ {
		classes := 1 + rng.Intn(4)
		acc, err := NewLinspace(2+rng.Intn(40), classes)
		require.NoError(t, err)
		labels, rows := randomBatch(rng, rng.Intn(60), classes)
		require.NoError(t, acc.UpdateRows(labels, rows))

		for _, agg := range Aggregations {
			for c := 0; c < classes; c++ {
				got, err := acc.AUC(c, agg)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
			}
		}
	}
}

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		in      string
		want    Aggregation
		wantErr bool
	}{
		{"", AggregationNone, false},
		{"none", AggregationNone, false},
		{"one_vs_all", AggregationNone, false},
		{"MACRO", AggregationMacro, false},
		{" micro ", AggregationMicro, false},
		{"weighted", AggregationWeighted, false},
		{"samples", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAggregation(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var a Aggregation
	require.NoError(t, a.UnmarshalText([]byte("weighted")))
	assert.Equal(t, AggregationWeighted, a)
	_, err := Aggregation(9).MarshalText()
	assert.Error(t, err)
}

func TestLookupMetric(t *testing.T) {
	m, err := LookupMetric("f1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, m(Confusion{TP: 2, FN: 1}), epsilon)

	_, err = LookupMetric("auc")
	assert.Error(t, err)
}
