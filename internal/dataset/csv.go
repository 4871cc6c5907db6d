package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

type csvSource struct {
	name     string
	closer   io.Closer
	reader   *csv.Reader
	labelIdx int
	scoreIdx []int
	headers  int
	line     int
	window   rowWindow
	builder  batchBuilder
	size     int
	done     bool
}

func newCSVSource(name string, rc io.ReadCloser, opts Options) (*csvSource, error) {
	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", name)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", name, err)
	}

	labelIdx, scoreIdx, err := resolveColumns(header, opts)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", name, err)
	}
	if opts.NumClasses > 0 && len(scoreIdx) != opts.NumClasses {
		return nil, fmt.Errorf("csv: %s has %d score columns, expected %d", name, len(scoreIdx), opts.NumClasses)
	}

	return &csvSource{
		name:     name,
		closer:   rc,
		reader:   reader,
		labelIdx: labelIdx,
		scoreIdx: scoreIdx,
		headers:  len(header),
		line:     1,
		window:   rowWindow{start: opts.Start, end: opts.End},
		builder:  batchBuilder{name: name, cols: len(scoreIdx), offset: firstOffset(opts.Start)},
		size:     opts.BatchSize,
	}, nil
}

// resolveColumns maps the label and score columns onto header positions.
func resolveColumns(header []string, opts Options) (int, []int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	labelIdx, ok := index[opts.LabelColumn]
	if !ok {
		return 0, nil, fmt.Errorf("label column %q not found", opts.LabelColumn)
	}

	if len(opts.ScoreColumns) > 0 {
		scoreIdx := make([]int, len(opts.ScoreColumns))
		for i, name := range opts.ScoreColumns {
			idx, ok := index[name]
			if !ok {
				return 0, nil, fmt.Errorf("score column %q not found", name)
			}
			scoreIdx[i] = idx
		}
		return labelIdx, scoreIdx, nil
	}

	type scoreCol struct{ class, idx int }
	var cols []scoreCol
	for name, idx := range index {
		suffix, ok := strings.CutPrefix(name, "score_")
		if !ok {
			continue
		}
		class, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		cols = append(cols, scoreCol{class: class, idx: idx})
	}
	if len(cols) == 0 {
		return 0, nil, fmt.Errorf("no score_<class> columns found")
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].class < cols[j].class })

	scoreIdx := make([]int, len(cols))
	for i, c := range cols {
		if c.class != i {
			return 0, nil, fmt.Errorf("score columns must be numbered 0..%d without gaps, missing score_%d", len(cols)-1, i)
		}
		scoreIdx[i] = c.idx
	}
	return labelIdx, scoreIdx, nil
}

func (s *csvSource) Name() string { return s.name }

func (s *csvSource) Close() error { return s.closer.Close() }

func (s *csvSource) Next(ctx context.Context) (*Batch, error) {
	for !s.done && s.builder.len() < s.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: parse %s: %w", s.name, err)
		}
		s.line++

		keep, done := s.window.admit()
		if done {
			s.done = true
			break
		}
		if !keep {
			continue
		}

		if len(record) != s.headers {
			return nil, fmt.Errorf("csv: %s row %d has %d columns, expected %d", s.name, s.line, len(record), s.headers)
		}
		label, scores, err := s.parse(record)
		if err != nil {
			return nil, err
		}
		s.builder.add(label, scores)
	}

	if b := s.builder.flush(); b != nil {
		return b, nil
	}
	return nil, io.EOF
}

func (s *csvSource) parse(record []string) (int, []float64, error) {
	label, err := strconv.Atoi(strings.TrimSpace(record[s.labelIdx]))
	if err != nil {
		return 0, nil, fmt.Errorf("csv: %s row %d: label %q is not an integer", s.name, s.line, record[s.labelIdx])
	}
	scores := make([]float64, len(s.scoreIdx))
	for i, idx := range s.scoreIdx {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("csv: %s row %d: score %q is not a number", s.name, s.line, record[idx])
		}
		scores[i] = v
	}
	return label, scores, nil
}

// LoadCSV reads an entire CSV file into a single batch.
func LoadCSV(path string) (*Batch, error) {
	return LoadCSVRange(path, 0, 0)
}

// LoadCSVRange reads rows start..end (1-based, inclusive) of a CSV file into
// a single batch. Zero bounds are open.
func LoadCSVRange(path string, start, end int) (*Batch, error) {
	ctx := context.Background()
	src, err := Open(ctx, path, Options{Format: "csv", Start: start, End: end})
	if err != nil {
		return nil, err
	}
	defer src.Close() //nolint:errcheck

	batches, err := Drain(ctx, src)
	if err != nil {
		return nil, err
	}
	return Concat(batches), nil
}
