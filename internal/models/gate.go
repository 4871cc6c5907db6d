package models

// GateKind identifies the type of a quality gate.
type GateKind string

const (
	GateKindMinAUC      GateKind = "min_auc"
	GateKindMinMetric   GateKind = "min_metric"
	GateKindMaxFPRAtTPR GateKind = "max_fpr_at_tpr"
)

// GateConfig declares a gate in the project configuration.
type GateConfig struct {
	Kind       GateKind       `yaml:"type" json:"type"`
	Identifier string         `yaml:"name" json:"name"`
	Parameters map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// GateResult is the outcome of evaluating one gate.
type GateResult struct {
	Name       string         `json:"name"`
	Type       GateKind       `json:"type"`
	Passed     bool           `json:"passed"`
	Value      float64        `json:"value"`
	Limit      float64        `json:"limit"`
	Feedback   string         `json:"feedback"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}
