// Package gormstore implements the attendance record store on a SQL database via gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/metrics"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the database named by driver and dsn.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		// every sqlite connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Store is a repository.Store on top of gorm.
type Store struct {
	db        *gorm.DB
	batchSize int
	now       func() time.Time
	onChunk   func(written int)
}

var _ repository.Store = (*Store)(nil)

// New migrates the schema and returns a Store using db.
func New(ctx context.Context, db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		batchSize: DefaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.WithContext(ctx).AutoMigrate(&attendanceRow{}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	return s, nil
}

// Get returns the record for (studentID, date).
func (s *Store) Get(ctx context.Context, studentID string, date types.Date) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	var row attendanceRow
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, date).
		Take(&row).Error
	if err != nil {
		return model.AttendanceRecord{}, notFound(err)
	}
	return row.toModel(), nil
}

// GetByID returns the record with the given ID.
func (s *Store) GetByID(ctx context.Context, id string) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	var row attendanceRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return model.AttendanceRecord{}, notFound(err)
	}
	return row.toModel(), nil
}

// Upsert writes one record keyed by its natural key.
func (s *Store) Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	if err := repository.Validate(rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	var out model.AttendanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.upsertRow(tx, rec, s.now())
		return err
	})
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	s.refreshTotal(ctx)
	return out, nil
}

// UpsertBatch writes recs in chunks of the configured batch size, one
// transaction per chunk. A failing row is rolled back to its savepoint and
// reported without aborting the chunk. Cancellation is honoured between
// chunks and inside a chunk, whose transaction is then rolled back; committed
// chunks stay committed and the rest are reported as cancelled.
func (s *Store) UpsertBatch(ctx context.Context, recs []model.AttendanceRecord) (repository.BatchResult, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	if err := ctx.Err(); err != nil {
		return repository.BatchResult{}, err
	}

	res := repository.BatchResult{Written: make([]model.AttendanceRecord, 0, len(recs))}
	now := s.now()
	for lo := 0; lo < len(recs); lo += s.batchSize {
		if ctx.Err() != nil {
			for _, rec := range recs[lo:] {
				res.Failed = append(res.Failed, repository.KeyError{Key: rec.Key(), Err: repository.ErrCancelled})
			}
			res.Cancelled = true
			break
		}

		hi := min(lo+s.batchSize, len(recs))
		written, failed, err := s.writeChunk(ctx, recs[lo:hi], now)
		if err != nil {
			// the whole chunk was rolled back
			if ctx.Err() != nil {
				err = repository.ErrCancelled
				res.Cancelled = true
			}
			failed = rolledBack(recs[lo:hi], err)
		}
		res.Written = append(res.Written, written...)
		res.Failed = append(res.Failed, failed...)

		if s.onChunk != nil {
			s.onChunk(len(res.Written))
		}
	}

	s.refreshTotal(ctx)
	return res, nil
}

func (s *Store) writeChunk(ctx context.Context, chunk []model.AttendanceRecord, now time.Time) ([]model.AttendanceRecord, []repository.KeyError, error) {
	var (
		written []model.AttendanceRecord
		failed  []repository.KeyError
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range chunk {
			if err := repository.Validate(rec); err != nil {
				failed = append(failed, repository.KeyError{Key: rec.Key(), Err: err})
				continue
			}
			sp := fmt.Sprintf("rec_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			out, err := s.upsertRow(tx, rec, now)
			if err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				failed = append(failed, repository.KeyError{Key: rec.Key(), Err: err})
				continue
			}
			written = append(written, out)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return written, failed, nil
}

// rolledBack reports every record of a rolled back chunk. Invalid records
// keep their validation error.
func rolledBack(chunk []model.AttendanceRecord, reason error) []repository.KeyError {
	out := make([]repository.KeyError, 0, len(chunk))
	for _, rec := range chunk {
		err := reason
		if vErr := repository.Validate(rec); vErr != nil {
			err = vErr
		}
		out = append(out, repository.KeyError{Key: rec.Key(), Err: err})
	}
	return out
}

func (s *Store) upsertRow(tx *gorm.DB, rec model.AttendanceRecord, now time.Time) (model.AttendanceRecord, error) {
	row := toRow(rec)
	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":         row.Status,
			"check_in_time":  row.CheckInTime,
			"check_out_time": row.CheckOutTime,
			"notes":          row.Notes,
			"updated_at":     now,
		}),
	}).Create(&row).Error
	if err != nil {
		return model.AttendanceRecord{}, err
	}

	var out attendanceRow
	if err := tx.Where("student_id = ? AND date = ?", rec.StudentID, rec.Date).Take(&out).Error; err != nil {
		return model.AttendanceRecord{}, err
	}
	return out.toModel(), nil
}

// Update changes the mutable fields of an existing record.
func (s *Store) Update(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	var out attendanceRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev attendanceRow
		if err := tx.Where("id = ?", rec.ID).Take(&prev).Error; err != nil {
			return notFound(err)
		}
		if !rec.Date.IsZero() && !rec.Date.Equal(prev.Date) {
			return repository.ErrDateImmutable
		}
		if rec.StudentID != "" && rec.StudentID != prev.StudentID {
			return repository.ErrDateImmutable
		}
		check := model.AttendanceRecord{StudentID: prev.StudentID, Date: prev.Date, Status: rec.Status}
		if err := repository.Validate(check); err != nil {
			return err
		}

		err := tx.Model(&attendanceRow{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
			"status":         string(rec.Status),
			"check_in_time":  rec.CheckInTime,
			"check_out_time": rec.CheckOutTime,
			"notes":          rec.Notes,
			"updated_at":     s.now(),
		}).Error
		if err != nil {
			return err
		}
		return tx.Where("id = ?", rec.ID).Take(&out).Error
	})
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return out.toModel(), nil
}

// Query returns the records matching q ordered by date desc, student id asc.
func (s *Store) Query(ctx context.Context, q repository.RecordQuery) ([]model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	if q.StudentIDs != nil && len(q.StudentIDs) == 0 {
		return []model.AttendanceRecord{}, nil
	}

	tx := s.db.WithContext(ctx).Model(&attendanceRow{})
	if !q.From.IsZero() {
		tx = tx.Where("date >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("date <= ?", q.To)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	if q.StudentIDs != nil {
		tx = tx.Where("student_id IN ?", q.StudentIDs)
	}

	var rows []attendanceRow
	if err := tx.Order("date DESC").Order("student_id ASC").Find(&rows).Error; err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("query attendance: %w", err)
	}

	out := make([]model.AttendanceRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer recordUpdateLatency(start)

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&attendanceRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	s.refreshTotal(ctx)
	return nil
}

// Count returns the number of stored records, or 0 if the count fails.
func (s *Store) Count(ctx context.Context) int {
	var n int64
	if err := s.db.WithContext(ctx).Model(&attendanceRow{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) refreshTotal(ctx context.Context) {
	metrics.UpdateRepositoryRecordsTotal(s.Count(context.WithoutCancel(ctx)))
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

func recordQueryLatency(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func recordUpdateLatency(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
