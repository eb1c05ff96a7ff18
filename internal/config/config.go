// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional dotenv file, an optional YAML file and
//   ROLLCALL_* environment variables.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/domain/bulk"
	"github.com/okian/rollcall/internal/domain/stats"
	"github.com/okian/rollcall/internal/domain/types"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Roster sources.
const (
	RosterSeed     = "seed"
	RosterDatabase = "database"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the record store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the database connection string for SQL drivers.
	StoreDSN string `koanf:"store_dsn"`
	// StoreBatchSize is the number of records committed per transaction.
	StoreBatchSize int `koanf:"store_batch_size"`

	// RosterSource selects where students come from: seed or database.
	RosterSource string `koanf:"roster_source"`
	// RosterSeedFile is a YAML roster used when RosterSource is seed.
	RosterSeedFile string `koanf:"roster_seed_file"`

	// CheckInTime is stamped on records bulk-marked present.
	CheckInTime string `koanf:"check_in_time"`
	// NoteTemplate is the note attached to bulk-marked records.
	NoteTemplate string `koanf:"note_template"`
	// NoteDateLayout formats {date} in NoteTemplate.
	NoteDateLayout string `koanf:"note_date_layout"`
	// AverageWeighting names the weights table for average attendance.
	AverageWeighting string `koanf:"average_weighting"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       StoreMemory,
		StoreBatchSize:    500,
		RosterSource:      RosterSeed,
		CheckInTime:       "08:00:00",
		NoteTemplate:      bulk.DefaultNoteTemplate,
		NoteDateLayout:    bulk.DefaultDateLayout,
		AverageWeighting:  stats.WeightingPresentOnly,
		ShutdownTimeoutMS: 10_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// CheckIn parses CheckInTime.
func (c *Config) CheckIn() (types.TimeOfDay, error) {
	return types.ParseTimeOfDay(c.CheckInTime)
}

// Weights resolves AverageWeighting.
func (c *Config) Weights() (stats.Weights, error) {
	return stats.ParseWeighting(c.AverageWeighting)
}

// Template returns the bulk note template.
func (c *Config) Template() bulk.Template {
	return bulk.Template{Text: c.NoteTemplate, DateLayout: c.NoteDateLayout}
}

// Validate checks field values and their combinations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.StoreBatchSize <= 0:
		return fmt.Errorf("%w: store_batch_size must be positive", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	case c.NoteTemplate == "":
		return fmt.Errorf("%w: note_template must not be empty", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for store_driver %q", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch c.RosterSource {
	case RosterSeed:
	case RosterDatabase:
		if c.StoreDriver == StoreMemory {
			return fmt.Errorf("%w: roster_source database needs a SQL store_driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown roster_source %q", ErrInvalidConfig, c.RosterSource)
	}

	if _, err := c.CheckIn(); err != nil {
		return fmt.Errorf("%w: check_in_time: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
