package repository

import (
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithWriteHook installs a check run for every record before it is written.
// A non-nil error rejects that record only.
func WithWriteHook(hook func(model.AttendanceRecord) error) Option {
	return func(s *MemStore) {
		s.hook = hook
	}
}
