package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/okian/guessconv/pkg/metrics"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	sqliteMaxOpenConns    = 1
	sqliteConnMaxLifetime = time.Hour
)

const leaderboardColumns = `id, username, average_error, total_guesses, best_error,
	performance_level, total_points, average_accuracy, updated_at`

// orderBy maps an Order to its SQL clause.
var orderBy = map[Order]string{ //nolint:gochecknoglobals // fixed lookup
	OrderAverageError: "average_error ASC, username ASC",
	OrderTotalPoints:  "total_points DESC, username ASC",
}

// aheadOf maps an Order to the predicate selecting rows ranked before (?, ?).
var aheadOf = map[Order]string{ //nolint:gochecknoglobals // fixed lookup
	OrderAverageError: "average_error < ? OR (average_error = ? AND username < ?)",
	OrderTotalPoints:  "total_points > ? OR (total_points = ? AND username < ?)",
}

// SQLiteStore persists the leaderboard in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	set settings
}

// NewSQLiteStore opens path, applies pragmas and runs embedded migrations.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	set := applyOptions(opts)
	set.logger.Info(ctx, "connecting to database", logger.String("path", path))

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(sqliteMaxOpenConns)
	db.SetConnMaxLifetime(sqliteConnMaxLifetime)

	if err := optimizeSQLite(ctx, db, set.logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	set.logger.Info(ctx, "database connection established")
	return &SQLiteStore{db: db, set: set}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

func optimizeSQLite(ctx context.Context, db *sql.DB, log logger.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("failed to set PRAGMA %s: %w", p.name, err)
		}
		log.Debug(ctx, "SQLite pragma set", logger.String("pragma", p.name), logger.String("value", p.value))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (model.LeaderboardEntry, error) {
	var (
		e         model.LeaderboardEntry
		updatedMs int64
	)
	if err := row.Scan(&e.ID, &e.Username, &e.AverageError, &e.TotalGuesses, &e.BestError,
		&e.PerformanceLevel, &e.TotalPoints, &e.AverageAccuracy, &updatedMs); err != nil {
		return model.LeaderboardEntry{}, err
	}
	e.LastUpdated = time.UnixMilli(updatedMs)
	return e, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, username string) (model.LeaderboardEntry, error) {
	defer observe("get", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard WHERE username = ?`, username)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("get %s: %w", username, err)
	}
	return e, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("insert", time.Now())
	e.ID = s.set.newID()
	e.LastUpdated = s.set.now()
	ms := e.LastUpdated.UnixMilli()
	_, err := s.db.ExecContext(ctx, `INSERT INTO leaderboard (id, username, average_error, total_guesses,
		best_error, performance_level, total_points, average_accuracy, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.AverageError, e.TotalGuesses, e.BestError,
		e.PerformanceLevel, e.TotalPoints, e.AverageAccuracy, ms, ms)
	if isSQLiteUniqueViolation(err) {
		return model.LeaderboardEntry{}, ErrConflict
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("insert %s: %w", e.Username, err)
	}
	s.refreshPlayers(ctx)
	return e, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("update", time.Now())
	e.LastUpdated = s.set.now()
	row := s.db.QueryRowContext(ctx, `UPDATE leaderboard SET average_error = ?, total_guesses = ?,
		best_error = ?, performance_level = ?, total_points = ?, average_accuracy = ?, updated_at = ?
		WHERE username = ? RETURNING id`,
		e.AverageError, e.TotalGuesses, e.BestError, e.PerformanceLevel,
		e.TotalPoints, e.AverageAccuracy, e.LastUpdated.UnixMilli(), e.Username)
	if err := row.Scan(&e.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LeaderboardEntry{}, ErrNotFound
		}
		return model.LeaderboardEntry{}, fmt.Errorf("update %s: %w", e.Username, err)
	}
	return e, nil
}

// TopN implements Store.
func (s *SQLiteStore) TopN(ctx context.Context, order Order, n int) ([]model.LeaderboardEntry, error) {
	defer observe("top_n", time.Now())
	if err := checkLimit(n); err != nil {
		return nil, err
	}
	clause, ok := orderBy[order]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leaderboardColumns+` FROM leaderboard ORDER BY `+clause+` LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.LeaderboardEntry, 0, n)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rank implements Store.
func (s *SQLiteStore) Rank(ctx context.Context, order Order, username string) (int, model.LeaderboardEntry, error) {
	defer observe("rank", time.Now())
	pred, ok := aheadOf[order]
	if !ok {
		return 0, model.LeaderboardEntry{}, fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
	e, err := s.Get(ctx, username)
	if err != nil {
		return 0, model.LeaderboardEntry{}, err
	}
	var key any = e.AverageError
	if order == OrderTotalPoints {
		key = e.TotalPoints
	}
	var ahead int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard WHERE `+pred, key, key, e.Username).Scan(&ahead); err != nil {
		return 0, model.LeaderboardEntry{}, fmt.Errorf("rank %s: %w", username, err)
	}
	return ahead + 1, e, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	metrics.UpdateTotalPlayers(0)
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) refreshPlayers(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalPlayers(n)
	}
}

func isSQLiteUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ Store = (*SQLiteStore)(nil)
