// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/types"
)

// Key is the natural key of an attendance record.
type Key struct {
	StudentID string
	Date      types.Date
}

// String renders the key as "<student>@<date>".
func (k Key) String() string {
	return k.StudentID + "@" + k.Date.String()
}

// AttendanceRecord is one student's attendance on one calendar day.
type AttendanceRecord struct {
	ID           string           `json:"id"`
	StudentID    string           `json:"student_id"`
	Date         types.Date       `json:"date"`
	Status       types.Status     `json:"status"`
	CheckInTime  *types.TimeOfDay `json:"check_in_time,omitempty"`
	CheckOutTime *types.TimeOfDay `json:"check_out_time,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Key returns the record's natural key.
func (r AttendanceRecord) Key() Key {
	return Key{StudentID: r.StudentID, Date: r.Date}
}

// Student is a roster entry. The roster owns it; the core only reads it.
type Student struct {
	ID            string `json:"id"             koanf:"id"`
	Name          string `json:"name"           koanf:"name"`
	StudentNumber string `json:"student_number" koanf:"student_number"`
	LevelID       string `json:"level"          koanf:"level"`
	SectionID     string `json:"section"        koanf:"section"`
}

// Matches reports whether the student's name or number contains term,
// case-insensitively. An empty term matches every student.
func (s Student) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Name), term) ||
		strings.Contains(strings.ToLower(s.StudentNumber), term)
}

// Level is an academic level (grade).
type Level struct {
	ID     string `json:"id"       koanf:"id"`
	Number int    `json:"level_no" koanf:"number"`
	Name   string `json:"name"     koanf:"name"`
}

// Section is a division of a level.
type Section struct {
	ID      string `json:"id"     koanf:"id"`
	Number  string `json:"sec_no" koanf:"number"`
	Name    string `json:"name"   koanf:"name"`
	LevelID string `json:"level"  koanf:"level"`
}

// RecordView is an attendance record enriched with roster data for display.
type RecordView struct {
	AttendanceRecord
	StudentName   string `json:"student_name"`
	StudentNumber string `json:"student_number"`
	LevelID       string `json:"level,omitempty"`
	SectionID     string `json:"section,omitempty"`
}

// BulkFailure names a student whose write did not apply.
type BulkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkResult reports the per-student outcome of a bulk write.
type BulkResult struct {
	Date      types.Date    `json:"date"`
	Status    types.Status  `json:"status,omitempty"`
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
	Cancelled bool          `json:"cancelled"`
}

// Partial reports whether at least one student failed.
func (r BulkResult) Partial() bool { return len(r.Failed) > 0 }
