package statistics

import (
	"math"
	"testing"
)

func TestBootstrapMean_Empty(t *testing.T) {
	ci := BootstrapMean(nil, 0.95, 1)
	if ci.Mean != 0 || ci.Lower != 0 || ci.Upper != 0 {
		t.Errorf("expected zero CI for empty input, got %+v", ci)
	}
	if ci.NumBootstraps != 0 {
		t.Errorf("expected 0 bootstraps for empty input, got %d", ci.NumBootstraps)
	}
}

func TestBootstrapMean_SingleBatch(t *testing.T) {
	ci := BootstrapMean([]float64{0.81}, 0.95, 1)
	if ci.Mean != 0.81 || ci.Lower != 0.81 || ci.Upper != 0.81 {
		t.Errorf("expected degenerate CI for a single batch, got %+v", ci)
	}
}

func TestBootstrapMean_IdenticalBatches(t *testing.T) {
	ci := BootstrapMean([]float64{0.7, 0.7, 0.7, 0.7}, 0.95, 42)
	if math.Abs(ci.Lower-0.7) > 1e-9 || math.Abs(ci.Upper-0.7) > 1e-9 {
		t.Errorf("expected CI [0.7, 0.7], got [%f, %f]", ci.Lower, ci.Upper)
	}
}

func TestBootstrapMean_BracketsMean(t *testing.T) {
	aucs := []float64{0.62, 0.71, 0.68, 0.75, 0.80, 0.66, 0.73, 0.70, 0.69, 0.77}
	ci := BootstrapMean(aucs, 0.95, 42)

	if math.Abs(ci.Mean-0.711) > 1e-9 {
		t.Errorf("expected mean 0.711, got %f", ci.Mean)
	}
	if ci.Lower >= ci.Mean || ci.Upper <= ci.Mean {
		t.Errorf("CI [%f, %f] should strictly bracket %f", ci.Lower, ci.Upper, ci.Mean)
	}
	if ci.Lower < 0.62 || ci.Upper > 0.80 {
		t.Errorf("CI [%f, %f] escapes the observed range", ci.Lower, ci.Upper)
	}
	if ci.NumBootstraps != DefaultBootstrapIterations {
		t.Errorf("expected %d bootstraps, got %d", DefaultBootstrapIterations, ci.NumBootstraps)
	}
}

func TestBootstrapMean_Deterministic(t *testing.T) {
	aucs := []float64{0.5, 0.6, 0.9, 0.7}
	a := BootstrapMean(aucs, 0.9, 7)
	b := BootstrapMean(aucs, 0.9, 7)
	if a != b {
		t.Errorf("same seed should reproduce the interval: %+v vs %+v", a, b)
	}
}

func TestBootstrapMean_LevelWidens(t *testing.T) {
	aucs := []float64{0.55, 0.61, 0.72, 0.64, 0.70, 0.58, 0.67}
	narrow := BootstrapMean(aucs, 0.80, 3)
	wide := BootstrapMean(aucs, 0.99, 3)
	if wide.Upper-wide.Lower <= narrow.Upper-narrow.Lower {
		t.Errorf("99%% interval should be wider than 80%%: %+v vs %+v", wide, narrow)
	}
}

func TestBootstrapMean_InvalidLevelFallsBack(t *testing.T) {
	ci := BootstrapMean([]float64{0.5, 0.6}, 1.5, 3)
	if ci.ConfidenceLevel != DefaultConfidenceLevel {
		t.Errorf("expected fallback level %f, got %f", DefaultConfidenceLevel, ci.ConfidenceLevel)
	}
}

func TestBootstrapDelta(t *testing.T) {
	base := []float64{0.60, 0.62, 0.61, 0.63, 0.59, 0.60}
	better := []float64{0.80, 0.82, 0.79, 0.81, 0.83, 0.80}

	ci := BootstrapDelta(base, better, 0.95, 11)
	if !IsSignificant(ci) {
		t.Errorf("a 0.2 AUC jump should be significant, got %+v", ci)
	}
	if ci.Mean < 0.19 || ci.Mean > 0.21 {
		t.Errorf("expected delta near 0.2, got %f", ci.Mean)
	}

	same := BootstrapDelta(base, base, 0.95, 11)
	if IsSignificant(same) {
		t.Errorf("identical inputs should not be significant, got %+v", same)
	}

	short := BootstrapDelta([]float64{0.5}, better, 0.95, 11)
	if short.NumBootstraps != 0 || short.Lower != short.Upper {
		t.Errorf("one-batch baseline should give a degenerate interval, got %+v", short)
	}
}

func TestIsSignificant(t *testing.T) {
	tests := []struct {
		name string
		ci   ConfidenceInterval
		want bool
	}{
		{"both positive", ConfidenceInterval{Lower: 0.1, Upper: 0.5}, true},
		{"both negative", ConfidenceInterval{Lower: -0.5, Upper: -0.1}, true},
		{"crosses zero", ConfidenceInterval{Lower: -0.1, Upper: 0.3}, false},
		{"touches zero", ConfidenceInterval{Lower: 0.0, Upper: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSignificant(tt.ci); got != tt.want {
				t.Errorf("IsSignificant(%+v) = %v, want %v", tt.ci, got, tt.want)
			}
		})
	}
}

func TestNormalizedGain(t *testing.T) {
	tests := []struct {
		name      string
		pre, post float64
		want      float64
	}{
		{"half the headroom", 0.8, 0.9, 0.5},
		{"no change", 0.75, 0.75, 0},
		{"perfect", 0.6, 1.0, 1},
		{"already perfect", 1.0, 0.9, 0},
		{"regression", 0.8, 0.7, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizedGain(tt.pre, tt.post); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizedGain(%f, %f) = %f, want %f", tt.pre, tt.post, got, tt.want)
			}
		})
	}
}
