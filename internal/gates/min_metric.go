package gates

import (
	"context"
	"fmt"

	"github.com/spboyer/streamauc/internal/metrics"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/streaming"
)

// MinMetricArgs holds the arguments for creating a min_metric gate.
type MinMetricArgs struct {
	Name   string `mapstructure:"-"`
	Target `mapstructure:",squash"`
	// Metric is a name known to streaming.LookupMetric, e.g. "precision".
	Metric string `mapstructure:"metric"`
	// Threshold selects the nearest configured threshold.
	Threshold float64 `mapstructure:"threshold"`
	Min       float64 `mapstructure:"min"`
}

type minMetricGate struct {
	name      string
	target    Target
	metric    string
	fn        streaming.MetricFunc
	threshold float64
	min       float64
}

// NewMinMetricGate creates a gate that evaluates a named metric at the
// threshold nearest the requested one.
func NewMinMetricGate(args MinMetricArgs) (*minMetricGate, error) {
	if err := args.Target.resolve(); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	fn, err := streaming.LookupMetric(args.Metric)
	if err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	if err := checkUnit("threshold", args.Threshold); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	if err := checkUnit("min", args.Min); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	return &minMetricGate{
		name:      args.Name,
		target:    args.Target,
		metric:    args.Metric,
		fn:        fn,
		threshold: args.Threshold,
		min:       args.Min,
	}, nil
}

func (g *minMetricGate) Name() string          { return g.name }
func (g *minMetricGate) Kind() models.GateKind { return models.GateKindMinMetric }

func (g *minMetricGate) Evaluate(ctx context.Context, acc *streaming.Accumulator) (*models.GateResult, error) {
	return measureTime(func() (*models.GateResult, error) {
		thresholds := acc.Thresholds()
		idx := metrics.NearestThreshold(thresholds, g.threshold)

		value, err := acc.MetricAt(g.fn, idx, g.target.Class, g.target.agg)
		if err != nil {
			return nil, err
		}

		passed := value >= g.min
		feedback := fmt.Sprintf("%s for %s at threshold %.4f is %.4f (min %.4f)", g.metric, g.target, thresholds[idx], value, g.min)
		if !passed {
			feedback = fmt.Sprintf("%s for %s at threshold %.4f is %.4f, below the minimum %.4f", g.metric, g.target, thresholds[idx], value, g.min)
		}

		details := g.target.details()
		details["metric"] = g.metric
		details["requested_threshold"] = g.threshold
		details["threshold"] = thresholds[idx]

		return &models.GateResult{
			Name:     g.name,
			Type:     models.GateKindMinMetric,
			Passed:   passed,
			Value:    value,
			Limit:    g.min,
			Feedback: feedback,
			Details:  details,
		}, nil
	})
}
