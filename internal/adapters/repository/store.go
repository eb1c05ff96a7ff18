// Package repository defines the attendance record store and its in-memory implementation.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// RecordQuery selects records from a store.
type RecordQuery struct {
	// From and To bound the record date inclusively. Zero values are open bounds.
	From types.Date
	To   types.Date
	// StudentIDs restricts results to these students. Nil means every student;
	// a non-nil empty slice matches nothing.
	StudentIDs []string
	// Status restricts results to one status when set.
	Status types.Status
}

// KeyError reports why one record of a batch was not written.
type KeyError struct {
	Key model.Key
	Err error
}

// BatchResult is the per-key outcome of UpsertBatch.
type BatchResult struct {
	Written   []model.AttendanceRecord
	Failed    []KeyError
	Cancelled bool
}

// Store provides read/write access to attendance records.
type Store interface {
	// Get returns the record for the natural key (student, date).
	// Returns ErrNotFound if there is none.
	Get(ctx context.Context, studentID string, date types.Date) (model.AttendanceRecord, error)
	// GetByID returns the record with the given ID or ErrNotFound.
	GetByID(ctx context.Context, id string) (model.AttendanceRecord, error)

	// Upsert creates the record or updates the one sharing its natural key.
	// ID and timestamps are assigned by the store.
	Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	// UpsertBatch upserts many records in one call and reports per-key outcomes.
	// A non-nil error means the batch could not be attempted at all.
	UpsertBatch(ctx context.Context, recs []model.AttendanceRecord) (BatchResult, error)
	// Update replaces status, times and notes of an existing record.
	// Changing the date fails with ErrDateImmutable.
	Update(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)

	// Query returns records matching q ordered by date desc, then student id asc.
	Query(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error)

	// Delete removes the record with the given ID or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// Close releases resources held by the store.
	Close() error
}

// Validate checks the invariants every stored record must satisfy.
func Validate(rec model.AttendanceRecord) error {
	switch {
	case rec.StudentID == "":
		return fmt.Errorf("%w: student id is empty", ErrInvalidRecord)
	case rec.Date.IsZero():
		return fmt.Errorf("%w: date is empty", ErrInvalidRecord)
	case !rec.Status.Valid():
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, rec.Status)
	}
	return nil
}

// Less orders records by date descending, then student id ascending.
func Less(a, b model.AttendanceRecord) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.StudentID < b.StudentID
}
