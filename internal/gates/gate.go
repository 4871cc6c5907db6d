package gates

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/streaming"
)

// Gate is the interface for all quality gates.
type Gate interface {
	// Name returns the gate identifier used in results.
	Name() string

	// Kind returns the gate type.
	Kind() models.GateKind

	// Evaluate checks the accumulator and returns a result. An error means
	// the gate could not be evaluated at all, e.g. its class does not exist.
	Evaluate(ctx context.Context, acc *streaming.Accumulator) (*models.GateResult, error)
}

// Target picks the curve a gate reads: a single class or an aggregate.
type Target struct {
	Class       int    `mapstructure:"class"`
	Aggregation string `mapstructure:"aggregation"`

	agg streaming.Aggregation
}

func (t *Target) resolve() error {
	if t.Aggregation == "" {
		t.Aggregation = streaming.AggregationMacro.String()
	}
	agg, err := streaming.ParseAggregation(t.Aggregation)
	if err != nil {
		return err
	}
	if t.Class < 0 {
		return fmt.Errorf("class must be >= 0, got %d", t.Class)
	}
	t.agg = agg
	return nil
}

func (t Target) String() string {
	if t.agg == streaming.AggregationNone {
		return fmt.Sprintf("class %d", t.Class)
	}
	return t.agg.String()
}

func (t Target) details() map[string]any {
	d := map[string]any{"aggregation": t.agg.String()}
	if t.agg == streaming.AggregationNone {
		d["class"] = t.Class
	}
	return d
}

// Create builds a gate from its configured type, name and free-form params.
func Create(kind models.GateKind, name string, params map[string]any) (Gate, error) {
	switch kind {
	case models.GateKindMinAUC:
		var args MinAUCArgs
		if err := decodeParams(params, &args); err != nil {
			return nil, fmt.Errorf("gate %q: %w", name, err)
		}
		args.Name = name
		return NewMinAUCGate(args)
	case models.GateKindMinMetric:
		var args MinMetricArgs
		if err := decodeParams(params, &args); err != nil {
			return nil, fmt.Errorf("gate %q: %w", name, err)
		}
		args.Name = name
		return NewMinMetricGate(args)
	case models.GateKindMaxFPRAtTPR:
		var args MaxFPRAtTPRArgs
		if err := decodeParams(params, &args); err != nil {
			return nil, fmt.Errorf("gate %q: %w", name, err)
		}
		args.Name = name
		return NewMaxFPRAtTPRGate(args)
	default:
		return nil, fmt.Errorf("'%s' is not a valid gate type", kind)
	}
}

// FromConfig builds every configured gate, stopping at the first error.
func FromConfig(configs []models.GateConfig) ([]Gate, error) {
	gates := make([]Gate, 0, len(configs))
	for _, cfg := range configs {
		g, err := Create(cfg.Kind, cfg.Identifier, cfg.Parameters)
		if err != nil {
			return nil, err
		}
		gates = append(gates, g)
	}
	return gates, nil
}

// Run evaluates every gate. A gate that cannot be evaluated yields a failed
// result carrying the error instead of aborting the others.
func Run(ctx context.Context, gates []Gate, acc *streaming.Accumulator) []models.GateResult {
	results := make([]models.GateResult, 0, len(gates))
	for _, g := range gates {
		res, err := g.Evaluate(ctx, acc)
		if err != nil {
			results = append(results, models.GateResult{
				Name:     g.Name(),
				Type:     g.Kind(),
				Feedback: "gate could not be evaluated",
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, *res)
	}
	return results
}

// decodeParams decodes gate params strictly: unknown keys are errors so a
// misspelled limit cannot silently fall back to zero.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		Squash:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

// measureTime is a helper to measure gate evaluation duration
func measureTime(fn func() (*models.GateResult, error)) (*models.GateResult, error) {
	start := time.Now()
	result, err := fn()

	if result != nil {
		result.DurationMs = time.Since(start).Milliseconds()
	}

	return result, err
}

func checkUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %g", field, v)
	}
	return nil
}
