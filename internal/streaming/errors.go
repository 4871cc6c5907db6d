package streaming

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid accumulator configuration")
	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("batch shape does not match accumulator")
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ConfigurationError reports an invalid construction parameter. It is not
// recoverable in place: the caller has to build a new accumulator.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("streaming: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ShapeMismatchError reports a batch whose dimensions disagree with the
// accumulator. The rejected batch has not touched any counter.
type ShapeMismatchError struct {
	Dimension string
	Got       int
	Want      int
	// Detail replaces the got/want wording when set.
	Detail string
}

func (e *ShapeMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("streaming: %s mismatch: %s", e.Dimension, e.Detail)
	}
	return fmt.Sprintf("streaming: %s mismatch: got %d, want %d", e.Dimension, e.Got, e.Want)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// IndexError reports an out-of-range lookup in a read accessor.
type IndexError struct {
	Name  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("streaming: %s index %d out of range [0, %d)", e.Name, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
