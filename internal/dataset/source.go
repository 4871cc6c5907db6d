package dataset

//go:generate go tool mockgen -destination datasetmock/source.go -package datasetmock . Source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DefaultBatchSize is the number of samples per batch when Options leaves it unset.
const DefaultBatchSize = 1024

// Batch is one chunk of samples: a label per row and an N x C score matrix.
type Batch struct {
	Labels []int
	Scores *mat.Dense
	// Offset is the zero-based index of the first sample within its source.
	Offset int64
	Source string
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int { return len(b.Labels) }

// Source yields batches until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (*Batch, error)
	Name() string
	Close() error
}

// Options control how a file is decoded into batches.
type Options struct {
	// Format forces "csv" or "jsonl"; empty means infer from the extension.
	Format    string
	BatchSize int
	// NumClasses, when set, is enforced on every row.
	NumClasses int

	// LabelColumn and ScoreColumns apply to CSV. ScoreColumns defaults to
	// every score_<i> column ordered by i.
	LabelColumn  string
	ScoreColumns []string

	// Start and End select a 1-based inclusive row range. Zero means
	// unbounded on that side.
	Start int
	End   int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.LabelColumn == "" {
		o.LabelColumn = "label"
	}
	return o
}

func (o Options) validate() error {
	if o.Start < 0 {
		return fmt.Errorf("dataset: range start must be >= 1, got %d", o.Start)
	}
	if o.End != 0 && o.End < o.Start {
		return fmt.Errorf("dataset: range end (%d) must be >= start (%d)", o.End, o.Start)
	}
	return nil
}

// rowWindow tracks the 1-based row range while decoding.
type rowWindow struct {
	start, end int
	row        int
}

// admit advances to the next row and reports whether it is inside the
// range and whether the range is exhausted.
func (w *rowWindow) admit() (keep, done bool) {
	w.row++
	if w.end != 0 && w.row > w.end {
		return false, true
	}
	return w.start == 0 || w.row >= w.start, false
}

// Open opens path and returns a Source for it. "-" reads standard input,
// az://account/container/blob reads from Azure Blob Storage. A trailing .gz
// or .zst is decompressed transparently.
func Open(ctx context.Context, path string, opts Options) (Source, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var raw io.ReadCloser
	switch {
	case path == "-":
		raw = io.NopCloser(os.Stdin)
	case strings.HasPrefix(path, blobScheme):
		rc, err := openBlob(ctx, path)
		if err != nil {
			return nil, err
		}
		raw = rc
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: open %s: %w", path, err)
		}
		raw = f
	}

	rc, inner, err := decompress(path, raw)
	if err != nil {
		raw.Close() //nolint:errcheck
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = formatFromExt(inner)
	}

	var src Source
	switch format {
	case "csv":
		src, err = newCSVSource(path, rc, opts)
	case "jsonl":
		src, err = newJSONLSource(path, rc, opts)
	default:
		err = fmt.Errorf("dataset: cannot infer format of %s: use a .csv or .jsonl extension or set a format", path)
	}
	if err != nil {
		rc.Close() //nolint:errcheck
		return nil, err
	}
	return src, nil
}

func formatFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv"
	case ".jsonl", ".ndjson":
		return "jsonl"
	}
	if name == "-" {
		return "csv"
	}
	return ""
}

// firstOffset is the zero-based index of row start, the first row a
// window admits.
func firstOffset(start int) int64 {
	if start > 1 {
		return int64(start - 1)
	}
	return 0
}

// batchBuilder collects rows until a batch is full.
type batchBuilder struct {
	name   string
	labels []int
	data   []float64
	cols   int
	offset int64
}

func (b *batchBuilder) add(label int, scores []float64) {
	b.labels = append(b.labels, label)
	b.data = append(b.data, scores...)
}

func (b *batchBuilder) len() int { return len(b.labels) }

// flush returns the pending batch, or nil when nothing is pending.
func (b *batchBuilder) flush() *Batch {
	if len(b.labels) == 0 {
		return nil
	}
	batch := &Batch{
		Labels: b.labels,
		Scores: mat.NewDense(len(b.labels), b.cols, b.data),
		Offset: b.offset,
		Source: b.name,
	}
	b.offset += int64(len(b.labels))
	b.labels = nil
	b.data = nil
	return batch
}

// Drain reads every remaining batch of src. Intended for small inputs and tests.
func Drain(ctx context.Context, src Source) ([]*Batch, error) {
	var out []*Batch
	for {
		b, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}

// Concat joins batches into one. All batches must have the same column count.
// It returns an empty batch for no input.
func Concat(batches []*Batch) *Batch {
	out := &Batch{}
	if len(batches) == 0 {
		return out
	}
	_, cols := batches[0].Scores.Dims()
	var data []float64
	for _, b := range batches {
		out.Labels = append(out.Labels, b.Labels...)
		data = append(data, b.Scores.RawMatrix().Data...)
	}
	out.Offset = batches[0].Offset
	out.Source = batches[0].Source
	out.Scores = mat.NewDense(len(out.Labels), cols, data)
	return out
}
