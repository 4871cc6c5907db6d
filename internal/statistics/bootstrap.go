package statistics

import (
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval computation.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// DefaultConfidenceLevel is used when a caller passes a level outside (0, 1).
const DefaultConfidenceLevel = 0.95

// BootstrapMean computes a percentile bootstrap interval for the mean of
// values. A negative seed draws from a non-deterministic source. Fewer than
// two values produce a degenerate interval at the mean.
func BootstrapMean(values []float64, level float64, seed int64) ConfidenceInterval {
	level = normalizeLevel(level)
	m := mean(values)
	if len(values) < 2 {
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: level}
	}

	rng := newRand(seed)
	boot := make([]float64, DefaultBootstrapIterations)
	sample := make([]float64, len(values))
	for i := range boot {
		resample(rng, values, sample)
		boot[i] = stat.Mean(sample, nil)
	}
	return percentileInterval(boot, m, level)
}

// BootstrapDelta computes a percentile bootstrap interval for
// mean(candidate) - mean(baseline), resampling both sides independently.
func BootstrapDelta(baseline, candidate []float64, level float64, seed int64) ConfidenceInterval {
	level = normalizeLevel(level)
	d := mean(candidate) - mean(baseline)
	if len(baseline) < 2 || len(candidate) < 2 {
		return ConfidenceInterval{Lower: d, Upper: d, Mean: d, ConfidenceLevel: level}
	}

	rng := newRand(seed)
	boot := make([]float64, DefaultBootstrapIterations)
	bs := make([]float64, len(baseline))
	cs := make([]float64, len(candidate))
	for i := range boot {
		resample(rng, baseline, bs)
		resample(rng, candidate, cs)
		boot[i] = stat.Mean(cs, nil) - stat.Mean(bs, nil)
	}
	return percentileInterval(boot, d, level)
}

// IsSignificant reports whether the interval excludes zero.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

// NormalizedGain expresses an AUC change as a share of the headroom left
// above the baseline: (post - pre) / (1 - pre). A baseline already at 1
// has no headroom and yields 0.
func NormalizedGain(pre, post float64) float64 {
	if pre >= 1 {
		return 0
	}
	if post >= 1 {
		return 1
	}
	if post == pre {
		return 0
	}
	return (post - pre) / (1 - pre)
}

func percentileInterval(boot []float64, center, level float64) ConfidenceInterval {
	slices.Sort(boot)
	alpha := 1 - level
	return ConfidenceInterval{
		Lower:           stat.Quantile(alpha/2, stat.Empirical, boot, nil),
		Upper:           stat.Quantile(1-alpha/2, stat.Empirical, boot, nil),
		Mean:            center,
		ConfidenceLevel: level,
		NumBootstraps:   len(boot),
	}
}

func resample(rng *rand.Rand, from, into []float64) {
	for j := range into {
		into[j] = from[rng.Intn(len(from))]
	}
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

func normalizeLevel(level float64) float64 {
	if level <= 0 || level >= 1 {
		return DefaultConfidenceLevel
	}
	return level
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
