package gormstore

import "time"

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 500

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithBatchSize sets how many records are committed per transaction.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithChunkCallback registers fn to run after every committed chunk with
// the number of records written so far.
func WithChunkCallback(fn func(written int)) Option {
	return func(s *Store) {
		s.onChunk = fn
	}
}
