package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/bulk"
	"github.com/okian/rollcall/internal/domain/filter"
	"github.com/okian/rollcall/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// Error records the handler operation that failed, the error kind and the
// underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns err classified as kind and raised by op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err as an internal error raised by op.
func Wrap(op string, err error) error {
	return WrapKind(op, ErrInternal, err)
}

// classify maps an error onto its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, filter.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, filter.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_filter"
	case errors.Is(err, bulk.ErrEmptyCohort):
		return http.StatusUnprocessableEntity, "empty_cohort"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDateImmutable):
		return http.StatusConflict, "date_immutable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidRecord),
		errors.Is(err, bulk.ErrInvalidDate),
		errors.Is(err, bulk.ErrInvalidStatus),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, types.ErrInvalidDate),
		errors.Is(err, types.ErrInvalidTimeOfDay):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		err = Wrap(op, err)
	}
	writeError(w, status, code, err)
}
