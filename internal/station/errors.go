package station

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField means a mandatory header line was not found.
	ErrMissingField = errors.New("missing header field")
	// ErrBadValue means a header or data value could not be parsed.
	ErrBadValue = errors.New("malformed value")
	// ErrSampleCount means the data section length differs from NUMBER OF DATA.
	ErrSampleCount = errors.New("sample count mismatch")
)

// FormatError reports a malformed or incomplete station file.
type FormatError struct {
	Field string // header label, or "DATA" for the sample section
	Line  int    // 1-based line number, 0 when not tied to a line
	Err   error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("station file: %s (line %d): %v", e.Field, e.Line, e.Err)
	}
	return fmt.Sprintf("station file: %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
