package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestOpenCSV(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		opts      Options
		wantRows  int
		wantCols  int
		wantErr   string
		wantLabel []int
	}{
		{
			name:      "happy path 3 rows 2 classes",
			csv:       "label,score_0,score_1\n0,0.9,0.1\n1,0.2,0.8\n1,0.4,0.6\n",
			wantRows:  3,
			wantCols:  2,
			wantLabel: []int{0, 1, 1},
		},
		{
			name:      "score columns ordered by class not header position",
			csv:       "id,score_1,label,score_0\na,0.7,1,0.3\n",
			wantRows:  1,
			wantCols:  2,
			wantLabel: []int{1},
		},
		{
			name:      "explicit columns",
			csv:       "y,p_cat,p_dog,p_fox\n2,0.1,0.2,0.7\n",
			opts:      Options{LabelColumn: "y", ScoreColumns: []string{"p_cat", "p_dog", "p_fox"}},
			wantRows:  1,
			wantCols:  3,
			wantLabel: []int{2},
		},
		{
			name:     "headers only",
			csv:      "label,score_0\n",
			wantRows: 0,
		},
		{
			name:    "mismatched column count",
			csv:     "label,score_0\n0,0.5\n1\n",
			wantErr: "row 3 has 1 columns, expected 2",
		},
		{
			name:    "missing label column",
			csv:     "score_0,score_1\n0.5,0.5\n",
			wantErr: `label column "label" not found`,
		},
		{
			name:    "gap in score columns",
			csv:     "label,score_0,score_2\n0,0.5,0.5\n",
			wantErr: "missing score_1",
		},
		{
			name:    "non numeric score",
			csv:     "label,score_0\n0,high\n",
			wantErr: `score "high" is not a number`,
		},
		{
			name:    "non integer label",
			csv:     "label,score_0\ncat,0.5\n",
			wantErr: `label "cat" is not an integer`,
		},
		{
			name:    "class count enforced",
			csv:     "label,score_0,score_1\n0,0.5,0.5\n",
			opts:    Options{NumClasses: 3},
			wantErr: "has 2 score columns, expected 3",
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeCSV(t, dir, "test.csv", tt.csv)

			src, err := Open(context.Background(), path, tt.opts)
			if err == nil {
				defer src.Close() //nolint:errcheck
				var batches []*Batch
				batches, err = Drain(context.Background(), src)
				if tt.wantErr == "" {
					require.NoError(t, err)
					rows := 0
					var labels []int
					for _, b := range batches {
						rows += b.Len()
						labels = append(labels, b.Labels...)
						_, c := b.Scores.Dims()
						assert.Equal(t, tt.wantCols, c)
					}
					assert.Equal(t, tt.wantRows, rows)
					assert.Equal(t, tt.wantLabel, labels)
					return
				}
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenCSVBatching(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "data.csv", "label,score_0,score_1\n0,0.9,0.1\n1,0.2,0.8\n1,0.4,0.6\n0,0.6,0.4\n1,0.1,0.9\n")

	src, err := Open(context.Background(), path, Options{BatchSize: 2})
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	batches, err := Drain(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, 2, batches[0].Len())
	assert.Equal(t, 2, batches[1].Len())
	assert.Equal(t, 1, batches[2].Len())
	assert.Equal(t, int64(0), batches[0].Offset)
	assert.Equal(t, int64(2), batches[1].Offset)
	assert.Equal(t, int64(4), batches[2].Offset)
	assert.Equal(t, path, batches[2].Source)

	assert.InDelta(t, 0.2, batches[0].Scores.At(1, 0), 1e-12)
	assert.InDelta(t, 0.9, batches[2].Scores.At(0, 1), 1e-12)
}

func TestOpenCSVRange(t *testing.T) {
	const content = "label,score_0\n0,0.1\n1,0.2\n0,0.3\n1,0.4\n0,0.5\n"

	tests := []struct {
		name       string
		start, end int
		wantScores []float64
		wantErr    string
	}{
		{name: "full range", start: 1, end: 5, wantScores: []float64{0.1, 0.2, 0.3, 0.4, 0.5}},
		{name: "middle slice", start: 2, end: 4, wantScores: []float64{0.2, 0.3, 0.4}},
		{name: "single row", start: 3, end: 3, wantScores: []float64{0.3}},
		{name: "open end", start: 4, wantScores: []float64{0.4, 0.5}},
		{name: "end beyond rows", start: 5, end: 99, wantScores: []float64{0.5}},
		{name: "start past end", start: 9, end: 10},
		{name: "negative start", start: -1, end: 3, wantErr: "range start must be >= 1"},
		{name: "end before start", start: 4, end: 2, wantErr: "must be >= start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "range.csv", content)

			src, err := Open(context.Background(), path, Options{Start: tt.start, End: tt.end})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer src.Close() //nolint:errcheck

			batches, err := Drain(context.Background(), src)
			require.NoError(t, err)

			var got []float64
			for _, b := range batches {
				for i := range b.Len() {
					got = append(got, b.Scores.At(i, 0))
				}
			}
			assert.Equal(t, tt.wantScores, got)
		})
	}
}

func TestOpenCSVRangeOffsets(t *testing.T) {
	const content = "label,score_0\n0,0.1\n1,0.2\n0,0.3\n1,0.4\n0,0.5\n"

	tests := []struct {
		name        string
		start, end  int
		wantOffsets []int64
	}{
		{name: "no range", wantOffsets: []int64{0, 2, 4}},
		{name: "start at first row", start: 1, wantOffsets: []int64{0, 2, 4}},
		{name: "start mid file", start: 2, wantOffsets: []int64{1, 3}},
		{name: "bounded window", start: 3, end: 4, wantOffsets: []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "range.csv", content)

			src, err := Open(context.Background(), path, Options{Start: tt.start, End: tt.end, BatchSize: 2})
			require.NoError(t, err)
			defer src.Close() //nolint:errcheck

			batches, err := Drain(context.Background(), src)
			require.NoError(t, err)

			var got []int64
			for _, b := range batches {
				got = append(got, b.Offset)
			}
			assert.Equal(t, tt.wantOffsets, got)
		})
	}
}

func TestOpenCSVCancelled(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "data.csv", "label,score_0\n0,0.5\n")
	src, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadCSVRange(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "small.csv", "label,score_0,score_1\n0,0.9,0.1\n1,0.2,0.8\n1,0.4,0.6\n")

	all, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, all.Labels)
	r, c := all.Scores.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)

	tail, err := LoadCSVRange(path, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, tail.Labels)
	assert.InDelta(t, 0.6, tail.Scores.At(1, 1), 1e-12)

	none, err := LoadCSVRange(path, 10, 12)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())
	assert.Nil(t, none.Scores)
}
