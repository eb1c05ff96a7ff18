package gormstore

import "errors"

// Sentinel kinds for SQL store setup.
var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrOpen          = errors.New("failed to open database")
	ErrMigrate       = errors.New("failed to migrate schema")
)
