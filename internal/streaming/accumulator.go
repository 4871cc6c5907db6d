// Package streaming maintains a running multi-class, multi-threshold
// confusion matrix over batches of (label, score) samples and derives
// ROC/PR curves and AUC from it without retaining the samples.
//
// An Accumulator has no internal locking. Concurrent use must be serialized
// by the caller; see the collector package for a ready-made wrapper.
package streaming

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Accumulator is a running confusion matrix indexed by (threshold, class).
// The zero value is not usable; create one with New.
type Accumulator struct {
	thresholds []float64
	numClasses int

	// Cell (t, c) lives at t*numClasses + c.
	tp, fp, tn, fn []int64

	samples int64
}

// New creates an accumulator for the given non-decreasing thresholds in
// [0, 1] and numClasses >= 1. The thresholds slice is copied.
func New(thresholds []float64, numClasses int) (*Accumulator, error) {
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}
	if numClasses < 1 {
		return nil, &ConfigurationError{
			Field:  "class count",
			Reason: fmt.Sprintf("need at least 1 class, got %d", numClasses),
		}
	}

	cells := len(thresholds) * numClasses
	return &Accumulator{
		thresholds: slices.Clone(thresholds),
		numClasses: numClasses,
		tp:         make([]int64, cells),
		fp:         make([]int64, cells),
		tn:         make([]int64, cells),
		fn:         make([]int64, cells),
	}, nil
}

// NewLinspace creates an accumulator with n evenly spaced thresholds over [0, 1].
func NewLinspace(n, numClasses int) (*Accumulator, error) {
	thresholds, err := Linspace(n)
	if err != nil {
		return nil, err
	}
	return New(thresholds, numClasses)
}

// Thresholds returns a copy of the threshold set.
func (a *Accumulator) Thresholds() []float64 { return slices.Clone(a.thresholds) }

// NumThresholds returns the number of thresholds.
func (a *Accumulator) NumThresholds() int { return len(a.thresholds) }

// NumClasses returns the configured class count.
func (a *Accumulator) NumClasses() int { return a.numClasses }

// Samples returns the number of samples accumulated since creation or the
// last Reset. Every cell's four counters sum to this value.
func (a *Accumulator) Samples() int64 { return a.samples }

// Update folds one batch into the counters. labels holds one class index
// per sample and scores is the N x C score matrix. Sample n counts as
// predicted positive for class c at threshold t when scores[n, c] >= t.
//
// The batch is validated completely before any counter changes, so a
// rejected batch leaves the accumulator untouched.
func (a *Accumulator) Update(labels []int, scores mat.Matrix) error {
	n := len(labels)
	if isNilMatrix(scores) {
		if n == 0 {
			return nil
		}
		return &ShapeMismatchError{Dimension: "sample count", Got: 0, Want: n}
	}

	rows, cols := scores.Dims()
	if rows != n {
		return &ShapeMismatchError{Dimension: "sample count", Got: rows, Want: n}
	}
	if cols != a.numClasses {
		return &ShapeMismatchError{Dimension: "class count", Got: cols, Want: a.numClasses}
	}
	for i, label := range labels {
		if label < 0 || label >= a.numClasses {
			return &ShapeMismatchError{
				Dimension: "label",
				Got:       label,
				Want:      a.numClasses,
				Detail:    fmt.Sprintf("label[%d] = %d is outside [0, %d)", i, label, a.numClasses),
			}
		}
	}
	if n == 0 {
		return nil
	}

	pos, neg := a.histograms(labels, scores)
	a.commit(pos, neg, int64(n))
	return nil
}

// UpdateRows is Update for a batch held as a slice of score rows.
func (a *Accumulator) UpdateRows(labels []int, rows [][]float64) error {
	if len(rows) != len(labels) {
		return &ShapeMismatchError{Dimension: "sample count", Got: len(rows), Want: len(labels)}
	}
	if len(rows) == 0 {
		return nil
	}

	data := make([]float64, 0, len(rows)*a.numClasses)
	for i, row := range rows {
		if len(row) != a.numClasses {
			return &ShapeMismatchError{
				Dimension: "class count",
				Got:       len(row),
				Want:      a.numClasses,
				Detail:    fmt.Sprintf("row %d has %d scores, want %d", i, len(row), a.numClasses),
			}
		}
		data = append(data, row...)
	}
	return a.Update(labels, mat.NewDense(len(rows), a.numClasses, data))
}

// UpdateOneHot is Update for one-hot (or soft) ground truth: the label of
// each sample is the column holding the largest value of its truth row.
func (a *Accumulator) UpdateOneHot(truth, scores mat.Matrix) error {
	if isNilMatrix(truth) {
		return a.Update(nil, scores)
	}
	rows, cols := truth.Dims()
	if cols != a.numClasses {
		return &ShapeMismatchError{Dimension: "class count", Got: cols, Want: a.numClasses}
	}

	labels := make([]int, rows)
	row := make([]float64, cols)
	for i := range labels {
		mat.Row(row, i, truth)
		labels[i] = argmax(row)
	}
	return a.Update(labels, scores)
}

// histograms counts, per class, how many positive and negative samples
// clear exactly k thresholds, for k in [0, T]. The result has C*(T+1) cells.
func (a *Accumulator) histograms(labels []int, scores mat.Matrix) (pos, neg []int64) {
	width := len(a.thresholds) + 1
	pos = make([]int64, a.numClasses*width)
	neg = make([]int64, a.numClasses*width)

	raw, _ := scores.(mat.RawRowViewer)
	for i, label := range labels {
		var row []float64
		if raw != nil {
			row = raw.RawRowView(i)
		}
		for c := 0; c < a.numClasses; c++ {
			var s float64
			if row != nil {
				s = row[c]
			} else {
				s = scores.At(i, c)
			}
			k := c*width + clearedCount(a.thresholds, s)
			if label == c {
				pos[k]++
			} else {
				neg[k]++
			}
		}
	}
	return pos, neg
}

// commit turns the per-class histograms into per-threshold increments. A
// sample that clears k thresholds is predicted positive at thresholds
// 0..k-1, so walking thresholds from the top keeps a running suffix sum.
func (a *Accumulator) commit(pos, neg []int64, n int64) {
	T := len(a.thresholds)
	width := T + 1
	for c := 0; c < a.numClasses; c++ {
		var totalPos, totalNeg int64
		for k := 0; k < width; k++ {
			totalPos += pos[c*width+k]
			totalNeg += neg[c*width+k]
		}

		var posAbove, negAbove int64
		for t := T - 1; t >= 0; t-- {
			posAbove += pos[c*width+t+1]
			negAbove += neg[c*width+t+1]

			i := t*a.numClasses + c
			a.tp[i] += posAbove
			a.fn[i] += totalPos - posAbove
			a.fp[i] += negAbove
			a.tn[i] += totalNeg - negAbove
		}
	}
	a.samples += n
}

// Reset zeroes every counter. Thresholds and class count are kept.
func (a *Accumulator) Reset() {
	clear(a.tp)
	clear(a.fp)
	clear(a.tn)
	clear(a.fn)
	a.samples = 0
}

// ConfusionAt returns the counters at (thresholdIndex, classIndex).
func (a *Accumulator) ConfusionAt(thresholdIndex, classIndex int) (Confusion, error) {
	if err := a.checkThreshold(thresholdIndex); err != nil {
		return Confusion{}, err
	}
	if err := a.checkClass(classIndex); err != nil {
		return Confusion{}, err
	}
	return a.cell(thresholdIndex, classIndex), nil
}

// ConfusionMatrix returns a T x C copy of every cell.
func (a *Accumulator) ConfusionMatrix() [][]Confusion {
	out := make([][]Confusion, len(a.thresholds))
	for t := range out {
		out[t] = make([]Confusion, a.numClasses)
		for c := range out[t] {
			out[t][c] = a.cell(t, c)
		}
	}
	return out
}

// Totals returns a T x C grid of TP+FP+TN+FN per cell. Every entry equals
// Samples.
func (a *Accumulator) Totals() [][]int64 {
	out := make([][]int64, len(a.thresholds))
	for t := range out {
		out[t] = make([]int64, a.numClasses)
		for c := range out[t] {
			out[t][c] = a.cell(t, c).Total()
		}
	}
	return out
}

// ClassPositives returns how many accumulated samples carry classIndex as
// their true label.
func (a *Accumulator) ClassPositives(classIndex int) (int64, error) {
	if err := a.checkClass(classIndex); err != nil {
		return 0, err
	}
	return a.cell(0, classIndex).Positives(), nil
}

// Clone returns an independent copy of the accumulator.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{
		thresholds: slices.Clone(a.thresholds),
		numClasses: a.numClasses,
		tp:         slices.Clone(a.tp),
		fp:         slices.Clone(a.fp),
		tn:         slices.Clone(a.tn),
		fn:         slices.Clone(a.fn),
		samples:    a.samples,
	}
}

// Merge adds the counters of other into a. Both accumulators must share
// the same thresholds and class count; on mismatch nothing is changed.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other.numClasses != a.numClasses {
		return &ShapeMismatchError{Dimension: "class count", Got: other.numClasses, Want: a.numClasses}
	}
	if !slices.Equal(other.thresholds, a.thresholds) {
		return &ShapeMismatchError{
			Dimension: "thresholds",
			Got:       len(other.thresholds),
			Want:      len(a.thresholds),
			Detail:    "threshold sets differ",
		}
	}
	for i := range a.tp {
		a.tp[i] += other.tp[i]
		a.fp[i] += other.fp[i]
		a.tn[i] += other.tn[i]
		a.fn[i] += other.fn[i]
	}
	a.samples += other.samples
	return nil
}

// isNilMatrix reports a nil interface or a nil pointer to one of gonum's
// dense types, whose Dims would otherwise dereference nil.
func isNilMatrix(m mat.Matrix) bool {
	switch v := m.(type) {
	case nil:
		return true
	case *mat.Dense:
		return v == nil
	case *mat.VecDense:
		return v == nil
	case *mat.SymDense:
		return v == nil
	case *mat.TriDense:
		return v == nil
	}
	return false
}

func (a *Accumulator) cell(t, c int) Confusion {
	i := t*a.numClasses + c
	return Confusion{TP: a.tp[i], FP: a.fp[i], TN: a.tn[i], FN: a.fn[i]}
}

// pooled sums every class at threshold t.
func (a *Accumulator) pooled(t int) Confusion {
	var sum Confusion
	for c := 0; c < a.numClasses; c++ {
		sum = sum.Add(a.cell(t, c))
	}
	return sum
}

func (a *Accumulator) checkThreshold(t int) error {
	if t < 0 || t >= len(a.thresholds) {
		return &IndexError{Name: "threshold", Index: t, Len: len(a.thresholds)}
	}
	return nil
}

func (a *Accumulator) checkClass(c int) error {
	if c < 0 || c >= a.numClasses {
		return &IndexError{Name: "class", Index: c, Len: a.numClasses}
	}
	return nil
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
