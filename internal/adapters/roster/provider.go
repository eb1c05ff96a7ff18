// Package roster reads students, levels and sections from the school roster.
// The roster is owned elsewhere; this package never writes to it.
package roster

import (
	"context"
	"errors"

	"github.com/okian/rollcall/internal/domain/model"
)

// Sentinel kinds for roster errors.
var (
	ErrLoadRoster    = errors.New("load roster failed")
	ErrUnknownSource = errors.New("unknown roster source")
)

// Query narrows a student listing. Empty fields match every student.
type Query struct {
	LevelID   string
	SectionID string
	Search    string
}

// Provider is read-only access to the roster.
type Provider interface {
	// ListStudents returns students matching q ordered by name, then ID.
	ListStudents(ctx context.Context, q Query) ([]model.Student, error)
	// ListLevels returns every level ordered by number.
	ListLevels(ctx context.Context) ([]model.Level, error)
	// ListSections returns every section ordered by level, then number.
	ListSections(ctx context.Context) ([]model.Section, error)
}
