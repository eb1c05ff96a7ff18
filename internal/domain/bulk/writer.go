// Package bulk marks attendance for a cohort of students in one batched write.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// DefaultCheckInTime is stamped on records bulk-marked present.
var DefaultCheckInTime = types.NewTimeOfDay(8, 0, 0)

// Entry is one explicit per-student write of a bulk request.
type Entry struct {
	StudentID    string
	Status       types.Status
	CheckInTime  *types.TimeOfDay
	CheckOutTime *types.TimeOfDay
	Notes        string
}

// Request marks every roster student matching Level, Section and Search
// with Status on Date.
type Request struct {
	Date    types.Date
	Status  types.Status
	Level   string
	Section string
	Search  string
}

// Writer performs bulk attendance writes against a Store.
type Writer struct {
	store    repository.Store
	checkIn  types.TimeOfDay
	template Template
	log      logger.Logger
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithCheckInTime sets the check-in time stamped on present records.
func WithCheckInTime(t types.TimeOfDay) Option {
	return func(w *Writer) { w.checkIn = t }
}

// WithTemplate sets the default note template.
func WithTemplate(t Template) Option {
	return func(w *Writer) {
		if !t.IsZero() {
			w.template = t
		}
	}
}

// WithLogger sets the writer logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWriter returns a Writer on store.
func NewWriter(store repository.Store, opts ...Option) *Writer {
	w := &Writer{
		store:    store,
		checkIn:  DefaultCheckInTime,
		template: DefaultTemplate,
		log:      logger.Get().Named("bulk"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Mark sets status for every cohort member on date. Present records get
// the canonical check-in time; every record gets the rendered note.
// A zero tmpl uses the writer's template. Duplicate students collapse to
// one record. When any student fails the result is also returned inside
// a *WriteError.
func (w *Writer) Mark(ctx context.Context, date types.Date, cohort []model.Student, status types.Status, tmpl Template) (model.BulkResult, error) {
	if date.IsZero() {
		metrics.RecordBulkMark(string(status), "rejected")
		return model.BulkResult{}, ErrInvalidDate
	}
	if status != types.StatusPresent && status != types.StatusAbsent {
		metrics.RecordBulkMark(string(status), "rejected")
		return model.BulkResult{}, fmt.Errorf("%w: got %q", ErrInvalidStatus, status)
	}
	if len(cohort) == 0 {
		metrics.RecordBulkMark(string(status), "rejected")
		return model.BulkResult{}, ErrEmptyCohort
	}
	if tmpl.IsZero() {
		tmpl = w.template
	}

	note := tmpl.Render(status, date)
	var checkIn *types.TimeOfDay
	if status == types.StatusPresent {
		checkIn = w.checkIn.Ptr()
	}

	seen := make(map[string]struct{}, len(cohort))
	recs := make([]model.AttendanceRecord, 0, len(cohort))
	for _, s := range cohort {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		recs = append(recs, model.AttendanceRecord{
			StudentID:   s.ID,
			Date:        date,
			Status:      status,
			CheckInTime: checkIn,
			Notes:       note,
		})
	}

	return w.write(ctx, date, status, recs)
}

// WriteEntries upserts explicit per-student entries for one date. Entry
// statuses may be any valid status. Later entries for the same student
// replace earlier ones.
func (w *Writer) WriteEntries(ctx context.Context, date types.Date, entries []Entry) (model.BulkResult, error) {
	if date.IsZero() {
		metrics.RecordBulkMark("mixed", "rejected")
		return model.BulkResult{}, ErrInvalidDate
	}
	if len(entries) == 0 {
		metrics.RecordBulkMark("mixed", "rejected")
		return model.BulkResult{}, ErrEmptyCohort
	}

	index := make(map[string]int, len(entries))
	recs := make([]model.AttendanceRecord, 0, len(entries))
	for _, e := range entries {
		rec := model.AttendanceRecord{
			StudentID:    e.StudentID,
			Date:         date,
			Status:       e.Status,
			CheckInTime:  e.CheckInTime,
			CheckOutTime: e.CheckOutTime,
			Notes:        e.Notes,
		}
		if i, dup := index[e.StudentID]; dup {
			recs[i] = rec
			continue
		}
		index[e.StudentID] = len(recs)
		recs = append(recs, rec)
	}

	return w.write(ctx, date, "", recs)
}

func (w *Writer) write(ctx context.Context, date types.Date, status types.Status, recs []model.AttendanceRecord) (model.BulkResult, error) {
	label := string(status)
	if label == "" {
		label = "mixed"
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordBulkMark(label, "cancelled")
		return model.BulkResult{}, err
	}

	start := time.Now()
	batch, err := w.store.UpsertBatch(ctx, recs)
	metrics.RecordBulkDuration(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordBulkMark(label, "error")
		w.log.Error(ctx, "bulk write failed",
			logger.String("date", date.String()),
			logger.Int("students", len(recs)),
			logger.Error(err))
		return model.BulkResult{}, fmt.Errorf("bulk write: %w", err)
	}

	res := model.BulkResult{
		Date:      date,
		Status:    status,
		Succeeded: make([]string, 0, len(batch.Written)),
		Failed:    make([]model.BulkFailure, 0, len(batch.Failed)),
		Cancelled: batch.Cancelled,
	}
	for _, rec := range batch.Written {
		res.Succeeded = append(res.Succeeded, rec.StudentID)
	}
	for _, f := range batch.Failed {
		res.Failed = append(res.Failed, model.BulkFailure{StudentID: f.Key.StudentID, Reason: f.Err.Error()})
	}
	metrics.RecordBulkRecords(len(res.Succeeded), len(res.Failed))

	if res.Partial() {
		metrics.RecordBulkMark(label, "partial")
		w.log.Warn(ctx, "bulk write partially failed",
			logger.String("date", date.String()),
			logger.Int("succeeded", len(res.Succeeded)),
			logger.Int("failed", len(res.Failed)),
			logger.Bool("cancelled", res.Cancelled))
		return res, &WriteError{Result: res}
	}

	metrics.RecordBulkMark(label, "ok")
	w.log.Info(ctx, "bulk write applied",
		logger.String("date", date.String()),
		logger.String("status", label),
		logger.Int("students", len(res.Succeeded)))
	return res, nil
}
