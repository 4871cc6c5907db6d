package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// jsonlRecord is one line of a JSONL dataset.
type jsonlRecord struct {
	Label  *int      `json:"label"`
	Scores []float64 `json:"scores"`
}

const maxJSONLLine = 4 << 20

type jsonlSource struct {
	name    string
	closer  io.Closer
	scanner *bufio.Scanner
	classes int
	line    int
	window  rowWindow
	builder batchBuilder
	size    int
	done    bool
}

func newJSONLSource(name string, rc io.ReadCloser, opts Options) (*jsonlSource, error) {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	return &jsonlSource{
		name:    name,
		closer:  rc,
		scanner: scanner,
		classes: opts.NumClasses,
		window:  rowWindow{start: opts.Start, end: opts.End},
		builder: batchBuilder{name: name, cols: opts.NumClasses, offset: firstOffset(opts.Start)},
		size:    opts.BatchSize,
	}, nil
}

func (s *jsonlSource) Name() string { return s.name }

func (s *jsonlSource) Close() error { return s.closer.Close() }

func (s *jsonlSource) Next(ctx context.Context) (*Batch, error) {
	for !s.done && s.builder.len() < s.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("jsonl: read %s: %w", s.name, err)
			}
			s.done = true
			break
		}
		s.line++

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		keep, done := s.window.admit()
		if done {
			s.done = true
			break
		}
		if !keep {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("jsonl: %s line %d: %w", s.name, s.line, err)
		}
		if rec.Label == nil {
			return nil, fmt.Errorf("jsonl: %s line %d: missing \"label\"", s.name, s.line)
		}
		if s.classes == 0 {
			if len(rec.Scores) == 0 {
				return nil, fmt.Errorf("jsonl: %s line %d: empty \"scores\"", s.name, s.line)
			}
			s.classes = len(rec.Scores)
			s.builder.cols = s.classes
		}
		if len(rec.Scores) != s.classes {
			return nil, fmt.Errorf("jsonl: %s line %d has %d scores, expected %d", s.name, s.line, len(rec.Scores), s.classes)
		}
		s.builder.add(*rec.Label, rec.Scores)
	}

	if b := s.builder.flush(); b != nil {
		return b, nil
	}
	return nil, io.EOF
}
