package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spboyer/streamauc/internal/checkpoint"
	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/dataset"
	"github.com/spboyer/streamauc/internal/gates"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/reporting"
	"github.com/spboyer/streamauc/internal/spinner"
	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/spboyer/streamauc/internal/template"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	evalConfigPath     string
	evalName           string
	evalInputFormat    string
	evalLabelColumn    string
	evalScoreColumns   []string
	evalClasses        int
	evalBatchSize      int
	evalThresholdCount int
	evalThresholds     []float64
	evalStart          int
	evalEnd            int
	evalFormat         string
	evalOutputPath     string
	evalJUnitPath      string
	evalResume         bool
	evalCheckpointDir  string
	evalSkipInvalid    bool
	evalInterpret      bool
	evalConfusion      bool
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [dataset ...]",
		Short: "Stream datasets through the accumulator and report ROC/AUC",
		Long: `Stream one or more datasets through a fixed threshold grid and report
per-class confusion counts, ROC curves and AUC.

Datasets are CSV or JSONL files (optionally .gz or .zst compressed), "-" for
standard input, or az://account/container/blob for Azure Blob Storage. With no
arguments the datasets listed in .streamauc.yaml are used.

Quality gates from the project config are evaluated after ingestion; a failing
gate exits with status 1.`,
		RunE: evalCommandE,
	}

	cmd.Flags().StringVarP(&evalConfigPath, "config", "c", "", "Project config file (default: nearest .streamauc.yaml)")
	cmd.Flags().StringVar(&evalName, "name", "", "Report name (default: project name)")
	cmd.Flags().StringVar(&evalInputFormat, "input-format", "", "Force dataset format: csv or jsonl (default: from extension)")
	cmd.Flags().StringVar(&evalLabelColumn, "label-column", "", "CSV label column")
	cmd.Flags().StringSliceVar(&evalScoreColumns, "score-columns", nil, "CSV score columns, in class order")
	cmd.Flags().IntVar(&evalClasses, "classes", 0, "Number of classes")
	cmd.Flags().IntVar(&evalBatchSize, "batch-size", 0, "Samples per batch")
	cmd.Flags().IntVar(&evalThresholdCount, "thresholds", 0, "Number of evenly spaced thresholds in [0, 1]")
	cmd.Flags().Float64SliceVar(&evalThresholds, "threshold-values", nil, "Explicit ascending thresholds in [0, 1]")
	cmd.Flags().IntVar(&evalStart, "start", 0, "First data row to read (1-based)")
	cmd.Flags().IntVar(&evalEnd, "end", 0, "Last data row to read (inclusive)")
	cmd.Flags().StringVarP(&evalFormat, "format", "f", "", "Output format: table, json, markdown or html")
	cmd.Flags().StringVarP(&evalOutputPath, "output", "o", "", "Save the JSON report to this file")
	cmd.Flags().StringVar(&evalJUnitPath, "junit", "", "Write gate results as JUnit XML to this file")
	cmd.Flags().BoolVar(&evalResume, "resume", false, "Checkpoint progress and resume an interrupted evaluation")
	cmd.Flags().StringVar(&evalCheckpointDir, "checkpoint-dir", "", "Checkpoint directory")
	cmd.Flags().BoolVar(&evalSkipInvalid, "skip-invalid", false, "Skip malformed batches instead of stopping")
	cmd.Flags().BoolVar(&evalInterpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().BoolVar(&evalConfusion, "confusion", false, "Include the full confusion matrix in the JSON report")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectConfig(evalConfigPath)
	if err != nil {
		return err
	}
	applyEvalFlags(cmd, cfg)

	if !validFormat(cfg.Output.Format) {
		return fmt.Errorf("unsupported format %q: must be table, json, markdown or html", cfg.Output.Format)
	}

	datasets := args
	if len(datasets) == 0 {
		datasets = cfg.ResolveDatasets()
	}
	if len(datasets) == 0 {
		return errors.New("no datasets given: pass dataset paths or list them under datasets in " + projectconfig.FileName)
	}

	gateList, err := gates.FromConfig(cfg.Gates)
	if err != nil {
		return fmt.Errorf("invalid gate configuration: %w", err)
	}
	historyAgg, err := streaming.ParseAggregation(cfg.Report.HistoryAggregation)
	if err != nil {
		return fmt.Errorf("invalid report.history_aggregation: %w", err)
	}

	acc, err := newAccumulator(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	run := &evalRun{cfg: cfg, datasets: datasets, acc: acc, progressOut: cmd.ErrOrStderr()}
	if cfg.CheckpointEnabled() {
		if err := run.openCheckpoint(); err != nil {
			return err
		}
	}

	coll := collector.New(run.acc, collector.Options{
		HistoryAggregation: historyAgg,
		SkipInvalid:        evalSkipInvalid,
	})
	if run.entry != nil {
		coll.Resume(run.entry.Progress, run.entry.History)
	}

	if run.entry == nil || !run.entry.Complete {
		if err := run.ingest(ctx, coll); err != nil {
			return err
		}
	}

	name := cfg.Name
	if name == "" {
		name = defaultReportName(datasets)
	}
	report, err := buildReport(ctx, coll, reportInput{
		Name:             name,
		Datasets:         datasets,
		ClassNames:       cfg.Input.ClassNames,
		Gates:            gateList,
		Report:           cfg.Report,
		IncludeConfusion: evalConfusion,
		Resumed:          run.entry != nil,
		Started:          started,
	})
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := writeReport(out, report, cfg.Output.Format); err != nil {
		return err
	}
	if evalInterpret && cfg.Output.Format == "table" {
		fmt.Fprint(out, reporting.FormatSummaryReport(report)) //nolint:errcheck
	}

	outputPath := evalOutputPath
	if outputPath == "" && cfg.Output.Dir != "" {
		name, err := reportFileName(cfg.Output.FileName, report)
		if err != nil {
			return fmt.Errorf("invalid output.file_name: %w", err)
		}
		outputPath = filepath.Join(cfg.Output.Dir, name)
	}
	if err := saveReport(cmd.ErrOrStderr(), report, outputPath, evalJUnitPath); err != nil {
		return err
	}
	return gateOutcome(report)
}

// evalRun holds the state shared by checkpointing and ingestion.
type evalRun struct {
	cfg      *projectconfig.ProjectConfig
	datasets []string
	acc      *streaming.Accumulator

	progressOut io.Writer

	store *checkpoint.Store
	key   string
	entry *checkpoint.Entry
}

// openCheckpoint looks up a saved entry for this evaluation and, when one
// exists, replaces the fresh accumulator with the restored one.
func (r *evalRun) openCheckpoint() error {
	if evalStart != 0 || evalEnd != 0 {
		return errors.New("--resume cannot be combined with --start or --end")
	}
	if slices.Contains(r.datasets, "-") {
		return errors.New("--resume cannot be used when reading standard input")
	}

	key, err := checkpoint.Key(r.datasets, r.acc.Thresholds(), r.acc.NumClasses())
	if err != nil {
		return fmt.Errorf("computing checkpoint key: %w", err)
	}
	r.store = checkpoint.New(r.cfg.Checkpoint.Dir)
	r.key = key

	entry, ok := r.store.Get(key)
	if !ok {
		return nil
	}
	acc, err := streaming.Restore(entry.State)
	if err != nil {
		slog.Warn("ignoring unusable checkpoint", "key", key, "error", err)
		return nil
	}
	r.acc = acc
	r.entry = entry
	slog.Info("resuming from checkpoint", "samples", acc.Samples(), "complete", entry.Complete, "saved_at", entry.SavedAt)
	return nil
}

// ingest opens every dataset past its saved progress and streams it into
// coll. The checkpoint is written whether ingestion finishes or stops.
func (r *evalRun) ingest(ctx context.Context, coll *collector.Collector) error {
	var progress map[string]int64
	if r.entry != nil {
		progress = r.entry.Progress
	}

	sources := make([]dataset.Source, 0, len(r.datasets))
	closeAll := func() {
		for _, src := range sources {
			src.Close() //nolint:errcheck
		}
	}
	for _, path := range r.datasets {
		opts := dataset.Options{
			Format:       r.cfg.Input.Format,
			BatchSize:    r.cfg.Input.BatchSize,
			NumClasses:   r.cfg.Input.Classes,
			LabelColumn:  r.cfg.Input.LabelColumn,
			ScoreColumns: r.cfg.Input.ScoreColumns,
			Start:        evalStart,
			End:          evalEnd,
		}
		if done := progress[path]; done > 0 {
			opts.Start = int(done) + 1
		}
		src, err := dataset.Open(ctx, path, opts)
		if err != nil {
			closeAll()
			return err
		}
		sources = append(sources, src)
	}

	stopProgress := r.startProgress(coll)
	ingestErr := coll.Ingest(ctx, sources...)
	stopProgress()
	if r.store != nil {
		if err := r.saveCheckpoint(coll, ingestErr == nil); err != nil {
			slog.Warn("failed to save checkpoint", "error", err)
		}
	}
	if ingestErr != nil {
		if errors.Is(ingestErr, context.Canceled) && r.store != nil {
			return fmt.Errorf("evaluation interrupted after %d samples; rerun with --resume to continue: %w",
				coll.Snapshot().Samples, ingestErr)
		}
		return fmt.Errorf("ingesting datasets: %w", ingestErr)
	}
	return nil
}

// startProgress shows a live sample count while ingesting, but only when
// stderr is a terminal.
func (r *evalRun) startProgress(coll *collector.Collector) (stop func()) {
	f, ok := r.progressOut.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	return spinner.Start(f, func() string {
		s := coll.Stats()
		return fmt.Sprintf("Ingesting: %s samples in %s batches", reporting.FormatCount(s.Samples), reporting.FormatCount(s.Batches))
	})
}

func (r *evalRun) saveCheckpoint(coll *collector.Collector, complete bool) error {
	return r.store.Put(&checkpoint.Entry{
		Key:      r.key,
		SavedAt:  time.Now().UTC(),
		State:    coll.Snapshot(),
		Progress: coll.Progress(),
		History:  coll.History(),
		Complete: complete,
	})
}

// loadProjectConfig reads an explicit config file or walks up from the
// working directory. A missing project config yields defaults.
func loadProjectConfig(path string) (*projectconfig.ProjectConfig, error) {
	if path != "" {
		return projectconfig.LoadFile(path)
	}
	return projectconfig.Load(".")
}

// applyEvalFlags overlays explicitly set flags onto the config.
func applyEvalFlags(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = evalName
	}
	if flags.Changed("input-format") {
		cfg.Input.Format = evalInputFormat
	}
	if flags.Changed("label-column") {
		cfg.Input.LabelColumn = evalLabelColumn
	}
	if flags.Changed("score-columns") {
		cfg.Input.ScoreColumns = evalScoreColumns
	}
	if flags.Changed("classes") {
		cfg.Input.Classes = evalClasses
	}
	if flags.Changed("batch-size") {
		cfg.Input.BatchSize = evalBatchSize
	}
	if flags.Changed("thresholds") {
		cfg.Thresholds.Count = evalThresholdCount
		cfg.Thresholds.Values = nil
	}
	if flags.Changed("threshold-values") {
		cfg.Thresholds.Values = evalThresholds
	}
	if flags.Changed("format") {
		cfg.Output.Format = evalFormat
	}
	if flags.Changed("resume") {
		enabled := evalResume
		cfg.Checkpoint.Enabled = &enabled
	}
	if flags.Changed("checkpoint-dir") {
		cfg.Checkpoint.Dir = evalCheckpointDir
	}
}

// newAccumulator builds the accumulator from explicit thresholds when set,
// otherwise from an evenly spaced grid.
func newAccumulator(cfg *projectconfig.ProjectConfig) (*streaming.Accumulator, error) {
	if len(cfg.Thresholds.Values) > 0 {
		return streaming.New(cfg.Thresholds.Values, cfg.Input.Classes)
	}
	return streaming.NewLinspace(cfg.Thresholds.Count, cfg.Input.Classes)
}

func defaultReportName(datasets []string) string {
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = strings.TrimSuffix(filepath.Base(d), filepath.Ext(d))
	}
	return strings.Join(names, "+")
}

// reportFileName renders the configured output file name for report.
func reportFileName(pattern string, report *models.EvaluationReport) (string, error) {
	vars := make(map[string]string, len(report.Metadata))
	for k, v := range report.Metadata {
		vars[k] = fmt.Sprint(v)
	}
	return template.FileName(pattern, &template.Context{
		Name:      report.Name,
		Timestamp: report.Timestamp.Format("20060102-150405"),
		Status:    string(report.Status),
		Samples:   report.Samples,
		Classes:   len(report.Classes),
		Vars:      vars,
	})
}
