// Package repository stores leaderboard rows, one per username.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/metrics"
)

// Order is a leaderboard ranking. Ties are broken by username ascending.
type Order string

const (
	// OrderAverageError ranks lower average error first.
	OrderAverageError Order = "average_error"
	// OrderTotalPoints ranks more points first.
	OrderTotalPoints Order = "total_points"
)

// Orders lists every supported ranking.
var Orders = []Order{OrderAverageError, OrderTotalPoints} //nolint:gochecknoglobals // fixed list

// ParseOrder validates s.
func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case OrderAverageError, OrderTotalPoints:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// Less reports whether a ranks before b.
func (o Order) Less(a, b model.LeaderboardEntry) bool {
	switch o {
	case OrderTotalPoints:
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
	default:
		if a.AverageError != b.AverageError {
			return a.AverageError < b.AverageError
		}
	}
	return a.Username < b.Username
}

// Store provides read/write access to leaderboard rows.
type Store interface {
	// Get returns the row for username or ErrNotFound.
	Get(ctx context.Context, username string) (model.LeaderboardEntry, error)

	// Insert creates a row. ErrConflict if the username already exists.
	// ID and LastUpdated are assigned by the store.
	Insert(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error)

	// Update overwrites the row for e.Username. ErrNotFound if missing.
	// The stored ID is kept; LastUpdated is refreshed.
	Update(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error)

	// TopN returns up to n rows in order.
	TopN(ctx context.Context, order Order, n int) ([]model.LeaderboardEntry, error)

	// Rank returns the 1-based position of username in order.
	Rank(ctx context.Context, order Order, username string) (int, model.LeaderboardEntry, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)

	// Reset deletes every row.
	Reset(ctx context.Context) error

	Close() error
}

// observe records a store operation latency.
func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func checkLimit(n int) error {
	if n < 1 {
		return ErrInvalidLimit
	}
	return nil
}
