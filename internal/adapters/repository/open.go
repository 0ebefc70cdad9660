package repository

import (
	"context"
	"fmt"

	"github.com/okian/guessconv/pkg/logger"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open builds the store for driver. dsn is the sqlite path or the postgres
// connection string. A persistent driver without a dsn yields an
// UnconfiguredStore rather than an error.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	log := applyOptions(opts).logger
	switch driver {
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite, DriverPostgres:
		if dsn == "" {
			log.Warn(ctx, "database credentials missing, leaderboard unavailable", logger.String("driver", driver))
			return UnconfiguredStore{}, nil
		}
		if driver == DriverSQLite {
			return NewSQLiteStore(ctx, dsn, opts...)
		}
		return NewPostgresStore(ctx, dsn, opts...)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
