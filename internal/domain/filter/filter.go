// Package filter resolves attendance filters into student cohorts and record sets.
package filter

import (
	"github.com/okian/rollcall/internal/domain/types"
)

// Filter selects attendance records. Empty optional fields match everything.
type Filter struct {
	StartDate types.Date
	EndDate   types.Date
	Level     string
	Section   string
	Status    types.Status
	Search    string
}

// WithDefaultRange fills both bounds with the Sunday..Saturday week
// containing today when neither bound is set.
func (f Filter) WithDefaultRange(today types.Date) Filter {
	if f.StartDate.IsZero() && f.EndDate.IsZero() {
		f.StartDate, f.EndDate = types.WeekOf(today)
	}
	return f
}

// RestrictsStudents reports whether the filter narrows the set of students.
func (f Filter) RestrictsStudents() bool {
	return f.Level != "" || f.Section != "" || f.Search != ""
}

// ValidateRange checks that both bounds are set and ordered.
// Bounds are never swapped.
func (f Filter) ValidateRange() error {
	if f.StartDate.IsZero() || f.EndDate.IsZero() || f.StartDate.After(f.EndDate) {
		return &RangeError{Start: f.StartDate, End: f.EndDate}
	}
	return nil
}

// ValidateStatus checks the optional status against the closed enum.
func (f Filter) ValidateStatus() error {
	if f.Status != "" && !f.Status.Valid() {
		return &ReferenceError{Field: "status", Value: string(f.Status)}
	}
	return nil
}
