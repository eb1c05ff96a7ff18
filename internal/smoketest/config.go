// Package smoketest drives a running attendance server through bulk marks,
// listings and statistics and checks that the answers agree.
package smoketest

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Date    string        // Day to mark, YYYY-MM-DD
	Workers int           // Concurrent section requests
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every section
}

// Section mirrors GET /sections items.
type Section struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LevelID string `json:"level"`
}

// Student mirrors GET /students items.
type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SectionID string `json:"section"`
}

// Record mirrors the attendance listing items the run inspects.
type Record struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	SectionID string `json:"section"`
}

type list[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

// BulkResult mirrors the POST /attendance/bulk response.
type BulkResult struct {
	Date      string   `json:"date"`
	Status    string   `json:"status"`
	Succeeded []string `json:"succeeded"`
	Failed    []struct {
		StudentID string `json:"student_id"`
		Reason    string `json:"reason"`
	} `json:"failed"`
	Cancelled bool `json:"cancelled"`
}

// Summary mirrors GET /attendance/statistics.
type Summary struct {
	TotalStudents     int     `json:"total_students"`
	PresentPercentage float64 `json:"present_percentage"`
	AbsentPercentage  float64 `json:"absent_percentage"`
	AverageAttendance float64 `json:"average_attendance"`
}

// SectionOutcome is what the run did and observed for one section.
type SectionOutcome struct {
	Section  Section
	Status   string
	Students int
	Written  int
	Failed   int
	Listed   int
	Summary  Summary
}

// Report summarises a smoke run.
type Report struct {
	Date     string
	Sections []SectionOutcome
	Duration time.Duration
}

// Written returns the number of records written across sections.
func (r *Report) Written() int {
	n := 0
	for _, s := range r.Sections {
		n += s.Written
	}
	return n
}
