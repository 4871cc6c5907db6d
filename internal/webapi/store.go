package webapi

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/streaming"
)

// ErrReportNotFound is returned when an ID does not match any stored report.
var ErrReportNotFound = errors.New("report not found")

// LiveStore is the running accumulator the API reads and feeds.
// *collector.Collector satisfies it.
type LiveStore interface {
	View(fn func(acc *streaming.Accumulator) error) error
	Inspect(fn func(acc *streaming.Accumulator, stats collector.Stats, history []float64) error) error
	UpdateRows(labels []int, rows [][]float64) error
	Reset()
	Stats() collector.Stats
}

// ReportStore provides access to saved evaluation reports.
type ReportStore interface {
	// ListReports returns all reports, sorted by the given field and order.
	ListReports(sortField, order string) ([]ReportSummary, error)
	// GetReport returns one full report.
	GetReport(id string) (*models.EvaluationReport, error)
}

// FileStore reads EvaluationReport JSON files from a directory.
type FileStore struct {
	dir string

	mu      sync.RWMutex
	reports map[string]*models.EvaluationReport
	loaded  bool
}

// NewFileStore creates a FileStore that reads reports from dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:     dir,
		reports: make(map[string]*models.EvaluationReport),
	}
}

// load reads all report JSON files from the configured directory. Files
// that are not reports are skipped.
func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.reports = make(map[string]*models.EvaluationReport)

	if fs.dir == "" {
		fs.loaded = true
		return nil
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			continue
		}
		var report models.EvaluationReport
		if err := json.Unmarshal(data, &report); err != nil || len(report.Thresholds) == 0 {
			continue
		}
		fs.reports[strings.TrimSuffix(e.Name(), ".json")] = &report
	}

	fs.loaded = true
	return nil
}

// ensureLoaded loads data if not already loaded.
func (fs *FileStore) ensureLoaded() error {
	fs.mu.RLock()
	if fs.loaded {
		fs.mu.RUnlock()
		return nil
	}
	fs.mu.RUnlock()
	return fs.load()
}

// Reload forces a fresh reload of all report files from disk.
func (fs *FileStore) Reload() error {
	return fs.load()
}

func reportToSummary(id string, r *models.EvaluationReport) ReportSummary {
	macro, _ := r.AggregateAUC(streaming.AggregationMacro)
	return ReportSummary{
		ID:        id,
		Name:      r.Name,
		Status:    string(r.Status),
		Samples:   r.Samples,
		MacroAUC:  macro,
		Duration:  float64(r.DurationMs) / 1000.0,
		Timestamp: r.Timestamp,
	}
}

// ListReports returns all reports sorted by the given field and order.
func (fs *FileStore) ListReports(sortField, order string) ([]ReportSummary, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	reports := make([]ReportSummary, 0, len(fs.reports))
	for id, r := range fs.reports {
		reports = append(reports, reportToSummary(id, r))
	}

	sortReports(reports, sortField, order)
	return reports, nil
}

// GetReport returns one report by file stem.
func (fs *FileStore) GetReport(id string) (*models.EvaluationReport, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r, ok := fs.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return r, nil
}

func sortReports(reports []ReportSummary, field, order string) {
	less := func(i, j int) bool {
		switch field {
		case "auc":
			return reports[i].MacroAUC < reports[j].MacroAUC
		case "samples":
			return reports[i].Samples < reports[j].Samples
		case "duration":
			return reports[i].Duration < reports[j].Duration
		case "name":
			return reports[i].Name < reports[j].Name
		default: // "timestamp" or empty
			return reports[i].Timestamp.Before(reports[j].Timestamp)
		}
	}

	if order == "asc" {
		sort.SliceStable(reports, less)
	} else {
		sort.SliceStable(reports, func(i, j int) bool { return less(j, i) })
	}
}

// Ensure FileStore satisfies ReportStore.
var _ ReportStore = (*FileStore)(nil)

// Ensure the collector satisfies LiveStore.
var _ LiveStore = (*collector.Collector)(nil)
