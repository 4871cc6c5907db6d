package streaming

import (
	"fmt"
	"strings"
)

// Aggregation selects how per-class counts are combined into one curve.
type Aggregation int

const (
	// AggregationNone reports a single class (one-vs-all).
	AggregationNone Aggregation = iota
	// AggregationMacro averages per-class rates without weights.
	AggregationMacro
	// AggregationMicro pools the raw counts of every class before computing a rate.
	AggregationMicro
	// AggregationWeighted averages per-class rates weighted by class positives.
	AggregationWeighted
)

// Aggregations lists every mode in declaration order.
var Aggregations = []Aggregation{AggregationNone, AggregationMacro, AggregationMicro, AggregationWeighted}

func (a Aggregation) String() string {
	switch a {
	case AggregationNone:
		return "none"
	case AggregationMacro:
		return "macro"
	case AggregationMicro:
		return "micro"
	case AggregationWeighted:
		return "weighted"
	}
	return fmt.Sprintf("Aggregation(%d)", int(a))
}

// Valid reports whether a is one of the declared modes.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationNone, AggregationMacro, AggregationMicro, AggregationWeighted:
		return true
	}
	return false
}

// ParseAggregation maps a config or query-string value onto an Aggregation.
// "one_vs_all" is accepted as an alias for "none".
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "one_vs_all", "one-vs-all":
		return AggregationNone, nil
	case "macro":
		return AggregationMacro, nil
	case "micro":
		return AggregationMicro, nil
	case "weighted":
		return AggregationWeighted, nil
	default:
		return 0, fmt.Errorf("unknown aggregation %q: must be none, macro, micro or weighted", s)
	}
}

func (a Aggregation) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", a)
	}
	return []byte(a.String()), nil
}

func (a *Aggregation) UnmarshalText(text []byte) error {
	v, err := ParseAggregation(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
