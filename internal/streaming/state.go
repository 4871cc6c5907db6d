package streaming

import (
	"fmt"
	"slices"
)

// State is a serializable copy of an accumulator, used for checkpoints.
type State struct {
	Thresholds []float64 `json:"thresholds"`
	NumClasses int       `json:"num_classes"`
	Samples    int64     `json:"samples"`
	TP         []int64   `json:"tp"`
	FP         []int64   `json:"fp"`
	TN         []int64   `json:"tn"`
	FN         []int64   `json:"fn"`
}

// Snapshot copies the current counters into a State.
func (a *Accumulator) Snapshot() State {
	return State{
		Thresholds: slices.Clone(a.thresholds),
		NumClasses: a.numClasses,
		Samples:    a.samples,
		TP:         slices.Clone(a.tp),
		FP:         slices.Clone(a.fp),
		TN:         slices.Clone(a.tn),
		FN:         slices.Clone(a.fn),
	}
}

// Restore rebuilds an accumulator from a snapshot, re-checking the
// configuration and the table sizes.
func Restore(s State) (*Accumulator, error) {
	a, err := New(s.Thresholds, s.NumClasses)
	if err != nil {
		return nil, err
	}
	cells := len(a.tp)
	for name, table := range map[string][]int64{"tp": s.TP, "fp": s.FP, "tn": s.TN, "fn": s.FN} {
		if len(table) != cells {
			return nil, &ConfigurationError{
				Field:  "state",
				Reason: fmt.Sprintf("%s table has %d cells, want %d", name, len(table), cells),
			}
		}
	}
	for i := 0; i < cells; i++ {
		if s.TP[i] < 0 || s.FP[i] < 0 || s.TN[i] < 0 || s.FN[i] < 0 {
			return nil, &ConfigurationError{Field: "state", Reason: fmt.Sprintf("negative counter in cell %d", i)}
		}
		if s.TP[i]+s.FP[i]+s.TN[i]+s.FN[i] != s.Samples {
			return nil, &ConfigurationError{
				Field:  "state",
				Reason: fmt.Sprintf("cell %d counts do not sum to %d samples", i, s.Samples),
			}
		}
	}

	copy(a.tp, s.TP)
	copy(a.fp, s.FP)
	copy(a.tn, s.TN)
	copy(a.fn, s.FN)
	a.samples = s.Samples
	return a, nil
}
