// Package stats computes attendance summaries over a record set.
package stats

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/metrics"
)

// ErrUnknownWeighting is returned for an unrecognised weighting name.
var ErrUnknownWeighting = errors.New("unknown average weighting")

// Weights assigns each status its contribution to the average attendance.
// Statuses missing from the table weigh zero.
type Weights map[types.Status]float64

// Named weighting tables.
var (
	// PresentOnly counts only present days; the average equals the present rate.
	PresentOnly = Weights{types.StatusPresent: 1}
	// LateCountsHalf counts a late day as half a present day.
	LateCountsHalf = Weights{types.StatusPresent: 1, types.StatusLate: 0.5}
)

// Weighting names accepted by ParseWeighting.
const (
	WeightingPresentOnly    = "present_only"
	WeightingLateCountsHalf = "late_counts_half"
)

// ParseWeighting returns the weights table registered under name.
func ParseWeighting(name string) (Weights, error) {
	switch name {
	case WeightingPresentOnly, "":
		return PresentOnly, nil
	case WeightingLateCountsHalf:
		return LateCountsHalf, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeighting, name)
	}
}

// Summary is derived on every request and never cached. Percentages keep
// full precision.
type Summary struct {
	TotalStudents     int                  `json:"total_students"`
	PresentPercentage float64              `json:"present_percentage"`
	AbsentPercentage  float64              `json:"absent_percentage"`
	LatePercentage    float64              `json:"late_percentage"`
	ExcusedPercentage float64              `json:"excused_percentage"`
	AverageAttendance float64              `json:"average_attendance"`
	RecordedDays      int                  `json:"recorded_days"`
	StudentDays       int                  `json:"student_days"`
	ByStatus          map[types.Status]int `json:"by_status"`
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWeights sets the table used for the average attendance.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		if len(w) > 0 {
			a.weights = make(Weights, len(w))
			for st, v := range w {
				a.weights[st] = v
			}
		}
	}
}

// Aggregator computes summaries. It is safe for concurrent use.
type Aggregator struct {
	weights Weights
}

// NewAggregator returns an Aggregator using PresentOnly unless overridden.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{weights: PresentOnly}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize computes the summary of records for a roster of rosterSize
// students. The denominator is rosterSize times the number of distinct
// dates that have at least one record; with no such dates, or an empty
// roster, every percentage is zero.
func (a *Aggregator) Summarize(records []model.AttendanceRecord, rosterSize int) Summary {
	metrics.RecordStatisticsComputed()

	sum := Summary{ByStatus: make(map[types.Status]int, len(types.Statuses))}
	for _, st := range types.Statuses {
		sum.ByStatus[st] = 0
	}
	if rosterSize <= 0 {
		return sum
	}
	sum.TotalStudents = rosterSize

	days := make(map[string]struct{})
	for _, rec := range records {
		days[rec.Date.String()] = struct{}{}
		sum.ByStatus[rec.Status]++
	}
	sum.RecordedDays = len(days)
	sum.StudentDays = rosterSize * sum.RecordedDays
	if sum.StudentDays == 0 {
		return sum
	}

	denom := float64(sum.StudentDays)
	rate := func(st types.Status) float64 {
		return float64(sum.ByStatus[st]) / denom * 100
	}
	sum.PresentPercentage = rate(types.StatusPresent)
	sum.AbsentPercentage = rate(types.StatusAbsent)
	sum.LatePercentage = rate(types.StatusLate)
	sum.ExcusedPercentage = rate(types.StatusExcused)

	var weighted float64
	for st, n := range sum.ByStatus {
		weighted += a.weights[st] * float64(n)
	}
	sum.AverageAttendance = weighted / denom * 100
	return sum
}
