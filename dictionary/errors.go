package dictionary

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEntry      = errors.New("invalid dictionary entry")
	ErrSourceUnavailable = errors.New("dictionary source unavailable")

	errMissingFrequency = errors.New("missing frequency")
)

// FormatError reports a dictionary line that could not be parsed into a word
// and an integer frequency. Line is 1-based.
type FormatError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid dictionary entry in %s at line %d: %q", e.Source, e.Line, e.Text)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidEntry
}

// ResourceError reports a failure to open, read or close a dictionary source.
type ResourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("dictionary %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func (e *ResourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
