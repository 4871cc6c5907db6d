package gates

import (
	"context"
	"fmt"
	"math"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/streaming"
)

// MaxFPRAtTPRArgs holds the arguments for creating a max_fpr_at_tpr gate.
type MaxFPRAtTPRArgs struct {
	Name   string `mapstructure:"-"`
	Target `mapstructure:",squash"`
	// TPR is the recall the classifier must reach.
	TPR float64 `mapstructure:"tpr"`
	// Max is the highest acceptable false positive rate at that recall.
	Max float64 `mapstructure:"max"`
}

type maxFPRAtTPRGate struct {
	name   string
	target Target
	tpr    float64
	max    float64
}

// NewMaxFPRAtTPRGate creates a gate that finds the lowest FPR among the
// thresholds whose TPR reaches the target and fails when it exceeds Max.
func NewMaxFPRAtTPRGate(args MaxFPRAtTPRArgs) (*maxFPRAtTPRGate, error) {
	if err := args.Target.resolve(); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	if err := checkUnit("tpr", args.TPR); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	if err := checkUnit("max", args.Max); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	return &maxFPRAtTPRGate{name: args.Name, target: args.Target, tpr: args.TPR, max: args.Max}, nil
}

func (g *maxFPRAtTPRGate) Name() string          { return g.name }
func (g *maxFPRAtTPRGate) Kind() models.GateKind { return models.GateKindMaxFPRAtTPR }

func (g *maxFPRAtTPRGate) Evaluate(ctx context.Context, acc *streaming.Accumulator) (*models.GateResult, error) {
	return measureTime(func() (*models.GateResult, error) {
		points, err := acc.ROCCurve(g.target.Class, g.target.agg)
		if err != nil {
			return nil, err
		}

		thresholds := acc.Thresholds()
		best, bestFPR := -1, math.Inf(1)
		for i, p := range points {
			if p.TPR >= g.tpr && p.FPR < bestFPR {
				best, bestFPR = i, p.FPR
			}
		}

		details := g.target.details()
		details["tpr_target"] = g.tpr

		if best < 0 {
			return &models.GateResult{
				Name:     g.name,
				Type:     models.GateKindMaxFPRAtTPR,
				Passed:   false,
				Value:    1,
				Limit:    g.max,
				Feedback: fmt.Sprintf("no threshold reaches TPR %.4f for %s", g.tpr, g.target),
				Details:  details,
			}, nil
		}

		details["threshold"] = thresholds[best]
		details["tpr"] = points[best].TPR

		passed := bestFPR <= g.max
		feedback := fmt.Sprintf("FPR for %s at TPR >= %.4f is %.4f (max %.4f)", g.target, g.tpr, bestFPR, g.max)
		if !passed {
			feedback = fmt.Sprintf("FPR for %s at TPR >= %.4f is %.4f, above the maximum %.4f", g.target, g.tpr, bestFPR, g.max)
		}

		return &models.GateResult{
			Name:     g.name,
			Type:     models.GateKindMaxFPRAtTPR,
			Passed:   passed,
			Value:    bestFPR,
			Limit:    g.max,
			Feedback: feedback,
			Details:  details,
		}, nil
	})
}
