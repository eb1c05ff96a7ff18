package bulk

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/model"
)

// Sentinel kinds for bulk marking.
var (
	ErrEmptyCohort   = errors.New("no students match the selected filters")
	ErrInvalidDate   = errors.New("bulk date is required")
	ErrInvalidStatus = errors.New("bulk status must be present or absent")
	ErrBulkWrite     = errors.New("bulk write partially failed")
)

// WriteError carries the result of a bulk write in which at least one
// student failed. Succeeded students are committed.
type WriteError struct {
	Result model.BulkResult
}

func (e *WriteError) Error() string {
	total := len(e.Result.Succeeded) + len(e.Result.Failed)
	msg := fmt.Sprintf("%s: %d of %d students failed", ErrBulkWrite, len(e.Result.Failed), total)
	if e.Result.Cancelled {
		msg += " (cancelled)"
	}
	return msg
}

// Unwrap returns ErrBulkWrite.
func (e *WriteError) Unwrap() error { return ErrBulkWrite }
