package filter

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/types"
)

// Sentinel kinds for filter validation.
var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrInvalidFilter = errors.New("invalid filter")
)

// RangeError reports a missing or reversed date range.
type RangeError struct {
	Start types.Date
	End   types.Date
}

func (e *RangeError) Error() string {
	switch {
	case e.Start.IsZero() || e.End.IsZero():
		return fmt.Sprintf("%s: start_date and end_date are both required (got %q, %q)", ErrInvalidRange, e.Start, e.End)
	default:
		return fmt.Sprintf("%s: start_date %s is after end_date %s", ErrInvalidRange, e.Start, e.End)
	}
}

// Unwrap returns ErrInvalidRange.
func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// ReferenceError reports a filter value that names nothing known.
type ReferenceError struct {
	Field string
	Value string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: unknown %s %q", ErrInvalidFilter, e.Field, e.Value)
}

// Unwrap returns ErrInvalidFilter.
func (e *ReferenceError) Unwrap() error { return ErrInvalidFilter }
