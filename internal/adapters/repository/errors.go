package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("attendance record not found")
	ErrDateImmutable = errors.New("attendance record date and student cannot change")
	ErrInvalidRecord = errors.New("invalid attendance record")
	ErrCancelled     = errors.New("cancelled")
)
