package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// decompress wraps raw according to the compression extension of name and
// returns the name with that extension stripped. Closing the returned reader
// closes raw as well.
func decompress(name string, raw io.ReadCloser) (io.ReadCloser, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	inner := strings.TrimSuffix(name, filepath.Ext(name))

	switch ext {
	case ".gz":
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, "", fmt.Errorf("dataset: gzip %s: %w", name, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, raw}}, inner, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(raw)
		if err != nil {
			return nil, "", fmt.Errorf("dataset: zstd %s: %w", name, err)
		}
		dec := zr.IOReadCloser()
		return &stackedCloser{Reader: dec, closers: []io.Closer{dec, raw}}, inner, nil
	default:
		return raw, name, nil
	}
}

// stackedCloser closes a decoder and the stream beneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
