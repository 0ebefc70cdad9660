// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers .env, an optional YAML file and GUESS_* env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Leaderboard orders.
const (
	OrderAverageError = "average_error"
	OrderTotalPoints  = "total_points"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the leaderboard store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the hosted database connection string. When the postgres
	// driver is selected without it the service runs unconfigured.
	PostgresDSN string `koanf:"postgres_dsn"`

	// LeaderboardLimit caps the number of rows returned by GET /api/leaderboard.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	// LeaderboardOrder is average_error (ascending) or total_points (descending).
	LeaderboardOrder string `koanf:"leaderboard_order"`

	// DedupeSize bounds the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// AdminToken enables DELETE /api/leaderboard. Empty disables it.
	AdminToken string `koanf:"admin_token"`

	// PublicURL is encoded into the share QR code.
	PublicURL string `koanf:"public_url"`

	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults. The context is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		StoreDriver:       DriverMemory,
		SQLitePath:        "guessconv.db",
		LeaderboardLimit:  20,
		LeaderboardOrder:  OrderAverageError,
		DedupeSize:        10_000,
		PublicURL:         "http://localhost:9080",
		CORSOrigins:       "*",
		ShutdownTimeoutMS: 10_000,
	}
}

// Origins splits CORSOrigins into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LeaderboardLimit <= 0:
		return fmt.Errorf("%w: leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.LeaderboardOrder {
	case OrderAverageError, OrderTotalPoints:
	default:
		return fmt.Errorf("%w: unknown leaderboard_order %q", ErrInvalidConfig, c.LeaderboardOrder)
	}
	return nil
}
