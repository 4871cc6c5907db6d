package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/spboyer/streamauc/internal/dataset"
	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/spboyer/streamauc/internal/telemetry"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Options configure a Collector.
type Options struct {
	// Metrics receives ingestion telemetry. Nil disables it.
	Metrics *telemetry.Metrics

	// HistoryAggregation selects which AUC is recorded per batch.
	// Defaults to micro averaging.
	HistoryAggregation streaming.Aggregation

	// SkipInvalid logs and counts rejected batches instead of stopping.
	SkipInvalid bool
}

// Stats are running ingestion counters.
type Stats struct {
	Samples  int64 `json:"samples"`
	Batches  int64 `json:"batches"`
	Rejected int64 `json:"rejected"`
}

// Collector serializes updates to one accumulator. Readers never observe a
// partially applied batch.
type Collector struct {
	mu  sync.RWMutex
	acc *streaming.Accumulator

	opts     Options
	stats    Stats
	history  []float64
	progress map[string]int64
}

// New wraps acc. The collector takes ownership; callers must not touch acc
// directly afterwards.
func New(acc *streaming.Accumulator, opts Options) *Collector {
	if opts.HistoryAggregation == streaming.AggregationNone {
		opts.HistoryAggregation = streaming.AggregationMicro
	}
	c := &Collector{
		acc:      acc,
		opts:     opts,
		progress: make(map[string]int64),
	}
	c.publishAUC()
	return c
}

// Update folds one batch into the accumulator.
func (c *Collector) Update(labels []int, scores mat.Matrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(labels, scores)
}

// UpdateRows folds a batch given as score rows, as decoded from JSON.
func (c *Collector) UpdateRows(labels []int, rows [][]float64) error {
	if len(rows) != len(labels) {
		return &streaming.ShapeMismatchError{Dimension: "sample count", Got: len(rows), Want: len(labels)}
	}
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return &streaming.ShapeMismatchError{
				Dimension: "class count",
				Got:       len(row),
				Want:      cols,
				Detail:    fmt.Sprintf("row %d has %d scores, want %d", i, len(row), cols),
			}
		}
		data = append(data, row...)
	}
	return c.Update(labels, mat.NewDense(len(rows), cols, data))
}

func (c *Collector) applyLocked(labels []int, scores mat.Matrix) error {
	start := time.Now()
	if err := c.acc.Update(labels, scores); err != nil {
		c.stats.Rejected++
		c.opts.Metrics.ObserveRejected()
		return err
	}
	took := time.Since(start)

	n := len(labels)
	if n == 0 {
		return nil
	}
	c.stats.Batches++
	c.stats.Samples += int64(n)
	c.opts.Metrics.ObserveBatch(n, took)

	if auc, ok := c.batchAUC(labels, scores); ok {
		c.history = append(c.history, auc)
	}
	c.publishAUC()
	return nil
}

// batchAUC scores one already validated batch on its own.
func (c *Collector) batchAUC(labels []int, scores mat.Matrix) (float64, bool) {
	classes := c.acc.NumClasses()
	if classes < 2 {
		return 0, false
	}
	single, err := streaming.New(c.acc.Thresholds(), classes)
	if err != nil {
		return 0, false
	}
	if err := single.Update(labels, scores); err != nil {
		return 0, false
	}

	agg := c.opts.HistoryAggregation
	if agg == streaming.AggregationMacro || agg == streaming.AggregationWeighted {
		n := single.Samples()
		for k := range classes {
			pos, _ := single.ClassPositives(k)
			if pos == 0 || pos == n {
				return 0, false
			}
		}
	}
	auc, err := single.AUC(0, agg)
	if err != nil {
		return 0, false
	}
	return auc, true
}

func (c *Collector) publishAUC() {
	m := c.opts.Metrics
	if m == nil {
		return
	}
	m.ResetAUC()
	for k := range c.acc.NumClasses() {
		if auc, err := c.acc.AUC(k, streaming.AggregationNone); err == nil {
			m.SetAUC(k, streaming.AggregationNone.String(), auc)
		}
	}
	for _, agg := range streaming.Aggregations[1:] {
		if auc, err := c.acc.AUC(0, agg); err == nil {
			m.SetAUC(-1, agg.String(), auc)
		}
	}
}

// View runs fn with shared access to the accumulator. fn must not retain or
// mutate it.
func (c *Collector) View(fn func(acc *streaming.Accumulator) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.acc)
}

// Inspect is View with the ingestion counters and batch AUC history read
// under the same lock, so all three describe the same set of batches.
func (c *Collector) Inspect(fn func(acc *streaming.Accumulator, stats Stats, history []float64) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.acc, c.stats, slices.Clone(c.history))
}

// Snapshot returns a consistent copy of the counters.
func (c *Collector) Snapshot() streaming.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acc.Snapshot()
}

// Reset zeroes the counters, history and progress.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acc.Reset()
	c.stats = Stats{}
	c.history = nil
	clear(c.progress)
	c.publishAUC()
}

// Stats returns the running ingestion counters.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// History returns the per-batch AUC values recorded so far.
func (c *Collector) History() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.history)
}

// Progress returns the number of samples consumed per source name.
func (c *Collector) Progress() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.progress)
}

// Resume seeds per-source progress and batch AUC history saved by an
// earlier run.
func (c *Collector) Resume(progress map[string]int64, history []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.progress, progress)
	c.history = append(c.history, history...)
}

// Ingest reads every source concurrently and applies their batches one at a
// time. Sources are closed when drained. Cancelling ctx stops ingestion;
// batches applied before that remain applied.
func (c *Collector) Ingest(ctx context.Context, sources ...dataset.Source) error {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan *dataset.Batch)

	var producers sync.WaitGroup
	for _, src := range sources {
		producers.Add(1)
		g.Go(func() error {
			defer producers.Done()
			return produce(gctx, src, batches)
		})
	}
	go func() {
		producers.Wait()
		close(batches)
	}()

	g.Go(func() error {
		for b := range batches {
			if err := c.apply(b); err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func produce(ctx context.Context, src dataset.Source, out chan<- *dataset.Batch) error {
	defer func() {
		if err := src.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close source", "source", src.Name(), "error", err)
		}
	}()

	for {
		b, err := src.Next(ctx)
		if err == io.EOF {
			slog.DebugContext(ctx, "source drained", "source", src.Name())
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Collector) apply(b *dataset.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var scores mat.Matrix
	if b.Scores != nil {
		scores = b.Scores
	}
	err := c.applyLocked(b.Labels, scores)
	if err != nil && !c.opts.SkipInvalid {
		return fmt.Errorf("%s (samples %d-%d): %w", b.Source, b.Offset+1, b.Offset+int64(b.Len()), err)
	}
	if err != nil {
		slog.Warn("skipping rejected batch", "source", b.Source, "offset", b.Offset, "error", err)
	}
	c.progress[b.Source] += int64(b.Len())
	return nil
}
