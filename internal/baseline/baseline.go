package baseline

import (
	"fmt"
	"math"
	"slices"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/statistics"
	"github.com/spboyer/streamauc/internal/streaming"
)

// bootstrapSeed keeps comparison intervals reproducible between runs.
const bootstrapSeed = 42

// Comparison pairs a baseline and a candidate report with computed deltas.
type Comparison struct {
	Baseline    string               `json:"baseline"`
	Candidate   string               `json:"candidate"`
	Classes     []ClassDelta         `json:"classes"`
	Aggregates  []AggregateDelta     `json:"aggregates"`
	Improvement float64              `json:"improvement"`
	Breakdown   ImprovementBreakdown `json:"improvement_breakdown"`

	// BatchDelta is the bootstrap interval of the per-batch AUC difference,
	// present when both reports carry batch values.
	BatchDelta  *statistics.ConfidenceInterval `json:"batch_delta,omitempty"`
	Significant bool                           `json:"significant"`
	Warnings    []string                       `json:"warnings,omitempty"`
}

// ClassDelta is the AUC change of one class.
type ClassDelta struct {
	Index     int           `json:"index"`
	Name      string        `json:"name,omitempty"`
	Baseline  float64       `json:"baseline"`
	Candidate float64       `json:"candidate"`
	Delta     float64       `json:"delta"`
	Gain      float64       `json:"normalized_gain"`
	Status    models.Status `json:"status,omitempty"`
}

// AggregateDelta is the AUC change of one aggregation mode.
type AggregateDelta struct {
	Aggregation string  `json:"aggregation"`
	Baseline    float64 `json:"baseline"`
	Candidate   float64 `json:"candidate"`
	Delta       float64 `json:"delta"`
}

// ImprovementBreakdown captures per-dimension deltas between the reports.
// Positive values mean the candidate was better.
type ImprovementBreakdown struct {
	MacroDelta     float64 `json:"macro_delta"`
	MicroDelta     float64 `json:"micro_delta"`
	WeightedDelta  float64 `json:"weighted_delta"`
	WorstClass     float64 `json:"worst_class_delta"`
	GateCompletion float64 `json:"gate_completion"`
}

// Compare computes per-class and aggregate AUC deltas and a composite
// improvement in [-1, 1].
func Compare(base, cand *models.EvaluationReport) (*Comparison, error) {
	if base == nil || cand == nil {
		return nil, fmt.Errorf("both a baseline and a candidate report are required")
	}

	cmp := &Comparison{Baseline: base.Name, Candidate: cand.Name}
	if !slices.Equal(base.Thresholds, cand.Thresholds) {
		cmp.Warnings = append(cmp.Warnings, "reports use different threshold sets; AUC values are not directly comparable")
	}

	cmp.Classes = compareClasses(base, cand)

	for _, agg := range streaming.Aggregations[1:] {
		b, okB := base.AggregateAUC(agg)
		c, okC := cand.AggregateAUC(agg)
		if !okB || !okC {
			continue
		}
		cmp.Aggregates = append(cmp.Aggregates, AggregateDelta{
			Aggregation: agg.String(),
			Baseline:    b,
			Candidate:   c,
			Delta:       c - b,
		})
		switch agg {
		case streaming.AggregationMacro:
			cmp.Breakdown.MacroDelta = c - b
		case streaming.AggregationMicro:
			cmp.Breakdown.MicroDelta = c - b
		case streaming.AggregationWeighted:
			cmp.Breakdown.WeightedDelta = c - b
		}
	}

	worst := math.Inf(1)
	for _, cd := range cmp.Classes {
		if cd.Status != models.StatusNA && cd.Delta < worst {
			worst = cd.Delta
		}
	}
	if !math.IsInf(worst, 1) {
		cmp.Breakdown.WorstClass = worst
	}
	cmp.Breakdown.GateCompletion = statusToCompletion(cand.Status) - statusToCompletion(base.Status)
	cmp.Improvement = computeComposite(cmp.Breakdown)

	if base.BatchAUC != nil && cand.BatchAUC != nil && len(base.BatchAUC.Values) > 1 && len(cand.BatchAUC.Values) > 1 {
		ci := statistics.BootstrapDelta(base.BatchAUC.Values, cand.BatchAUC.Values, statistics.DefaultConfidenceLevel, bootstrapSeed)
		cmp.BatchDelta = &ci
		cmp.Significant = statistics.IsSignificant(ci)
	}
	return cmp, nil
}

func compareClasses(base, cand *models.EvaluationReport) []ClassDelta {
	indexes := map[int]bool{}
	for _, c := range base.Classes {
		indexes[c.Index] = true
	}
	for _, c := range cand.Classes {
		indexes[c.Index] = true
	}
	keys := make([]int, 0, len(indexes))
	for k := range indexes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	deltas := make([]ClassDelta, 0, len(keys))
	for _, k := range keys {
		b, c := base.ClassByIndex(k), cand.ClassByIndex(k)
		d := ClassDelta{Index: k}
		switch {
		case b == nil || c == nil:
			d.Status = models.StatusNA
			if b != nil {
				d.Name, d.Baseline = b.Name, b.AUC
			}
			if c != nil {
				d.Name, d.Candidate = c.Name, c.AUC
			}
		default:
			d.Name = c.Name
			d.Baseline, d.Candidate = b.AUC, c.AUC
			d.Delta = c.AUC - b.AUC
			d.Gain = statistics.NormalizedGain(b.AUC, c.AUC)
		}
		deltas = append(deltas, d)
	}
	return deltas
}

func statusToCompletion(status models.Status) float64 {
	if status == models.StatusPassed {
		return 1.0
	}
	return 0.0
}

// computeComposite produces a [-1, 1] improvement score. Aggregate AUC
// movement dominates; a regressing class and gate status adjust it.
func computeComposite(b ImprovementBreakdown) float64 {
	score := b.MacroDelta*0.4 +
		b.MicroDelta*0.2 +
		b.WeightedDelta*0.2 +
		b.WorstClass*0.1 +
		b.GateCompletion*0.1
	return math.Max(-1.0, math.Min(1.0, score))
}
