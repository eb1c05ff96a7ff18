package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/metrics"
)

// MemStore is a mutex-guarded in-memory Store keyed by (student, date).
type MemStore struct {
	mu    sync.RWMutex
	byKey map[model.Key]model.AttendanceRecord
	keyOf map[string]model.Key

	now   func() time.Time
	newID func() string
	hook  func(model.AttendanceRecord) error
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		byKey: make(map[model.Key]model.AttendanceRecord),
		keyOf: make(map[string]model.Key),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the record for (studentID, date).
func (s *MemStore) Get(ctx context.Context, studentID string, date types.Date) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[model.Key{StudentID: studentID, Date: date}]
	if !ok {
		return model.AttendanceRecord{}, ErrNotFound
	}
	return rec, nil
}

// GetByID returns the record with the given ID.
func (s *MemStore) GetByID(ctx context.Context, id string) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keyOf[id]
	if !ok {
		return model.AttendanceRecord{}, ErrNotFound
	}
	return s.byKey[key], nil
}

// Upsert writes one record keyed by its natural key.
func (s *MemStore) Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	if err := ctx.Err(); err != nil {
		return model.AttendanceRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.upsertLocked(rec, s.now())
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.UpdateRepositoryRecordsTotal(len(s.byKey))
	return out, nil
}

// UpsertBatch applies the whole batch under one lock so readers never
// observe a half-written batch.
func (s *MemStore) UpsertBatch(ctx context.Context, recs []model.AttendanceRecord) (BatchResult, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res := BatchResult{Written: make([]model.AttendanceRecord, 0, len(recs))}
	for _, rec := range recs {
		out, err := s.upsertLocked(rec, now)
		if err != nil {
			res.Failed = append(res.Failed, KeyError{Key: rec.Key(), Err: err})
			continue
		}
		res.Written = append(res.Written, out)
	}
	metrics.UpdateRepositoryRecordsTotal(len(s.byKey))
	return res, nil
}

func (s *MemStore) upsertLocked(rec model.AttendanceRecord, now time.Time) (model.AttendanceRecord, error) {
	if err := Validate(rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	if s.hook != nil {
		if err := s.hook(rec); err != nil {
			return model.AttendanceRecord{}, err
		}
	}

	key := rec.Key()
	if prev, ok := s.byKey[key]; ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.ID = s.newID()
		rec.CreatedAt = now
		s.keyOf[rec.ID] = key
	}
	rec.UpdatedAt = now
	s.byKey[key] = rec
	return rec, nil
}

// Update changes the mutable fields of an existing record.
func (s *MemStore) Update(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	start := time.Now()
	defer recordUpdateLatency(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keyOf[rec.ID]
	if !ok {
		return model.AttendanceRecord{}, ErrNotFound
	}
	prev := s.byKey[key]
	if !rec.Date.IsZero() && !rec.Date.Equal(prev.Date) {
		return model.AttendanceRecord{}, ErrDateImmutable
	}
	if rec.StudentID != "" && rec.StudentID != prev.StudentID {
		return model.AttendanceRecord{}, ErrDateImmutable
	}
	if err := Validate(model.AttendanceRecord{StudentID: prev.StudentID, Date: prev.Date, Status: rec.Status}); err != nil {
		return model.AttendanceRecord{}, err
	}

	prev.Status = rec.Status
	prev.CheckInTime = rec.CheckInTime
	prev.CheckOutTime = rec.CheckOutTime
	prev.Notes = rec.Notes
	prev.UpdatedAt = s.now()
	s.byKey[key] = prev
	return prev, nil
}

// Query returns the records matching q in display order.
func (s *MemStore) Query(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error) {
	start := time.Now()
	defer recordQueryLatency(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var only map[string]struct{}
	if q.StudentIDs != nil {
		if len(q.StudentIDs) == 0 {
			return []model.AttendanceRecord{}, nil
		}
		only = make(map[string]struct{}, len(q.StudentIDs))
		for _, id := range q.StudentIDs {
			only[id] = struct{}{}
		}
	}

	s.mu.RLock()
	out := make([]model.AttendanceRecord, 0, len(s.byKey))
	for _, rec := range s.byKey {
		if !matches(rec, q, only) {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out, nil
}

func matches(rec model.AttendanceRecord, q RecordQuery, only map[string]struct{}) bool {
	if !q.From.IsZero() && rec.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && rec.Date.After(q.To) {
		return false
	}
	if q.Status != "" && rec.Status != q.Status {
		return false
	}
	if only != nil {
		if _, ok := only[rec.StudentID]; !ok {
			return false
		}
	}
	return true
}

// Delete removes the record with the given ID.
func (s *MemStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer recordUpdateLatency(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keyOf[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.keyOf, id)
	delete(s.byKey, key)
	metrics.UpdateRepositoryRecordsTotal(len(s.byKey))
	return nil
}

// Count returns the number of stored records.
func (s *MemStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }

func recordQueryLatency(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func recordUpdateLatency(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
