package gates

import (
	"context"
	"fmt"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/streaming"
)

// MinAUCArgs holds the arguments for creating a min_auc gate.
type MinAUCArgs struct {
	// Name is the identifier for this gate, used in results.
	Name   string `mapstructure:"-"`
	Target `mapstructure:",squash"`
	// Min is the lowest acceptable AUC.
	Min float64 `mapstructure:"min"`
}

type minAUCGate struct {
	name   string
	target Target
	min    float64
}

// NewMinAUCGate creates a gate that fails when the AUC of its class or
// aggregate falls below Min.
func NewMinAUCGate(args MinAUCArgs) (*minAUCGate, error) {
	if err := args.Target.resolve(); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	if err := checkUnit("min", args.Min); err != nil {
		return nil, fmt.Errorf("gate %q: %w", args.Name, err)
	}
	return &minAUCGate{name: args.Name, target: args.Target, min: args.Min}, nil
}

func (g *minAUCGate) Name() string          { return g.name }
func (g *minAUCGate) Kind() models.GateKind { return models.GateKindMinAUC }

func (g *minAUCGate) Evaluate(ctx context.Context, acc *streaming.Accumulator) (*models.GateResult, error) {
	return measureTime(func() (*models.GateResult, error) {
		auc, err := acc.AUC(g.target.Class, g.target.agg)
		if err != nil {
			return nil, err
		}

		passed := auc >= g.min
		feedback := fmt.Sprintf("AUC for %s is %.4f (min %.4f)", g.target, auc, g.min)
		if !passed {
			feedback = fmt.Sprintf("AUC for %s is %.4f, below the minimum %.4f", g.target, auc, g.min)
		}

		return &models.GateResult{
			Name:     g.name,
			Type:     models.GateKindMinAUC,
			Passed:   passed,
			Value:    auc,
			Limit:    g.min,
			Feedback: feedback,
			Details:  g.target.details(),
		}, nil
	})
}
