package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/metrics"
)

const postgresPingTimeout = 5 * time.Second

// leaderboardRow is the hosted table layout.
type leaderboardRow struct {
	ID               string    `gorm:"column:id;primaryKey"`
	Username         string    `gorm:"column:username;uniqueIndex;not null"`
	AverageError     float64   `gorm:"column:average_error;index"`
	TotalGuesses     int       `gorm:"column:total_guesses"`
	BestError        float64   `gorm:"column:best_error"`
	PerformanceLevel string    `gorm:"column:performance_level"`
	TotalPoints      int       `gorm:"column:total_points;index"`
	AverageAccuracy  float64   `gorm:"column:average_accuracy"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (leaderboardRow) TableName() string { return "leaderboard" }

func rowFromEntry(e model.LeaderboardEntry) leaderboardRow {
	return leaderboardRow{
		ID:               e.ID,
		Username:         e.Username,
		AverageError:     e.AverageError,
		TotalGuesses:     e.TotalGuesses,
		BestError:        e.BestError,
		PerformanceLevel: e.PerformanceLevel,
		TotalPoints:      e.TotalPoints,
		AverageAccuracy:  e.AverageAccuracy,
		CreatedAt:        e.LastUpdated,
		UpdatedAt:        e.LastUpdated,
	}
}

func (r leaderboardRow) entry() model.LeaderboardEntry {
	return model.LeaderboardEntry{
		ID:               r.ID,
		Username:         r.Username,
		AverageError:     r.AverageError,
		TotalGuesses:     r.TotalGuesses,
		BestError:        r.BestError,
		PerformanceLevel: r.PerformanceLevel,
		TotalPoints:      r.TotalPoints,
		AverageAccuracy:  r.AverageAccuracy,
		LastUpdated:      r.UpdatedAt,
	}
}

// PostgresStore is the hosted leaderboard database.
type PostgresStore struct {
	db  *gorm.DB
	set settings
}

// NewPostgresStore connects to dsn, pings it and migrates the table.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	return newPostgresStore(ctx, db, opts...)
}

func newPostgresStore(ctx context.Context, db *gorm.DB, opts ...Option) (*PostgresStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&leaderboardRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate leaderboard: %w", err)
	}
	return &PostgresStore{db: db, set: applyOptions(opts)}, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, username string) (model.LeaderboardEntry, error) {
	defer observe("get", time.Now())
	var row leaderboardRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("get %s: %w", username, err)
	}
	return row.entry(), nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("insert", time.Now())
	e.ID = s.set.newID()
	e.LastUpdated = s.set.now()
	row := rowFromEntry(e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.LeaderboardEntry{}, ErrConflict
		}
		return model.LeaderboardEntry{}, fmt.Errorf("insert %s: %w", e.Username, err)
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalPlayers(n)
	}
	return e, nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("update", time.Now())
	e.LastUpdated = s.set.now()
	res := s.db.WithContext(ctx).Model(&leaderboardRow{}).
		Where("username = ?", e.Username).
		Updates(map[string]any{
			"average_error":     e.AverageError,
			"total_guesses":     e.TotalGuesses,
			"best_error":        e.BestError,
			"performance_level": e.PerformanceLevel,
			"total_points":      e.TotalPoints,
			"average_accuracy":  e.AverageAccuracy,
			"updated_at":        e.LastUpdated,
		})
	if res.Error != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("update %s: %w", e.Username, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	stored, err := s.Get(ctx, e.Username)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	return stored, nil
}

// TopN implements Store.
func (s *PostgresStore) TopN(ctx context.Context, order Order, n int) ([]model.LeaderboardEntry, error) {
	defer observe("top_n", time.Now())
	if err := checkLimit(n); err != nil {
		return nil, err
	}
	clause, ok := orderBy[order]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
	var rows []leaderboardRow
	if err := s.db.WithContext(ctx).Order(clause).Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	out := make([]model.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Rank implements Store.
func (s *PostgresStore) Rank(ctx context.Context, order Order, username string) (int, model.LeaderboardEntry, error) {
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
	var ahead int64
	if err := s.db.WithContext(ctx).Model(&leaderboardRow{}).
		Where(pred, key, key, e.Username).Count(&ahead).Error; err != nil {
		return 0, model.LeaderboardEntry{}, fmt.Errorf("rank %s: %w", username, err)
	}
	return int(ahead) + 1, e, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&leaderboardRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(n), nil
}

// Reset implements Store.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&leaderboardRow{}).Error; err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	metrics.UpdateTotalPlayers(0)
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
