package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "scores.csv", fixtureCSV)

	acc, err := streaming.New([]float64{0, 0.5, 1}, 2)
	require.NoError(t, err)
	coll := collector.New(acc, collector.Options{})

	in := projectconfig.New().Input
	preload(context.Background(), coll, []string{filepath.Join(dir, "missing.csv"), data}, in, slog.Default())

	assert.Equal(t, int64(4), coll.Stats().Samples)
	err = coll.View(func(acc *streaming.Accumulator) error {
		auc, err := acc.AUC(0, streaming.AggregationMacro)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, auc, 1e-9)
		return nil
	})
	require.NoError(t, err)
}

func TestServeCommand_RejectsBadConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "config.yaml", "report:\n  history_aggregation: median\n")

	_, _, err := runCLI(t, "serve", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_aggregation")
}
