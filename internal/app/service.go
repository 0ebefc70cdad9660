// Package service provides the leaderboard business logic behind the HTTP API.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/guessconv/internal/adapters/repository"
	"github.com/okian/guessconv/internal/domain/dedupe"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/scoring"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/okian/guessconv/pkg/metrics"
)

// Defaults.
const (
	DefaultLeaderboardLimit = 20
	defaultDedupeSize       = 10000
	defaultStatsInterval    = 15 * time.Second
)

// Notifier is told about every successful write.
type Notifier interface {
	Broadcast(ctx context.Context, leaderboard []model.LeaderboardEntry)
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	Leaderboard []model.LeaderboardEntry
	Entry       model.LeaderboardEntry
	Created     bool
	// Duplicate is set when the idempotency key was already applied and nothing was written.
	Duplicate bool
}

// Service implements the API dependencies for the leaderboard.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	deduper  dedupe.Deduper
	notifier Notifier

	// Configuration
	limit         int
	order         repository.Order
	dedupeSize    int
	adminToken    string
	statsInterval time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Without WithStore every leaderboard call
// returns ErrNotConfigured.
func New(opts ...Option) *Service {
	s := &Service{
		store:         repository.UnconfiguredStore{},
		limit:         DefaultLeaderboardLimit,
		order:         repository.OrderAverageError,
		dedupeSize:    defaultDedupeSize,
		statsInterval: defaultStatsInterval,
		stopCh:        make(chan struct{}),
		logger:        nil, // replaced on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the background player-count gauge updates.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.statsInterval > 0 {
		s.wg.Add(1)
		go s.statsLoop(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("limit", s.limit),
		logger.String("order", string(s.order)),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("admin", s.adminToken != ""),
	)
	return nil
}

// Stop shuts down the background loop and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.store.Close(); err != nil {
		s.log().Error(context.Background(), "failed to close store", logger.Error(err))
	}
	s.log().Info(context.Background(), "leaderboard service stopped")
}

// Leaderboard returns the top rows in the configured order.
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, err := s.store.TopN(ctx, s.order, s.limit)
	if err != nil {
		metrics.RecordLeaderboardError(errorKind(err))
		return nil, err
	}
	metrics.RecordLeaderboardRead()
	return entries, nil
}

// Submit upserts the player's aggregate and returns the refreshed leaderboard.
// A submission whose idempotency key was already applied writes nothing.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (SubmitResult, error) {
	// missing configuration is reported before anything about the payload
	if _, ok := s.store.(repository.UnconfiguredStore); ok {
		metrics.RecordSubmission("error")
		metrics.RecordLeaderboardError(errorKind(ErrNotConfigured))
		return SubmitResult{}, ErrNotConfigured
	}
	sub.Username = model.TruncateUsername(sub.Username)
	if sub.Username == "" {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, ErrUsernameRequired
	}
	if err := sub.Validate(); err != nil {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, err
	}
	if sub.PerformanceLevel == "" {
		sub.PerformanceLevel = scoring.PerformanceLevel(sub.AverageError)
	}

	key := sub.IdempotencyKey
	if key != "" && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmissionDuplicate()
		s.log().Debug(ctx, "duplicate submission, skipping write",
			logger.String("username", sub.Username), logger.String("key", key))
		board, err := s.Leaderboard(ctx)
		if err != nil {
			return SubmitResult{}, &SubmitError{Stage: StageRefresh, Err: err}
		}
		return SubmitResult{Leaderboard: board, Duplicate: true}, nil
	}

	entry, created, err := s.upsert(ctx, sub)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordSubmission("error")
		metrics.RecordLeaderboardError(errorKind(err))
		s.log().Error(ctx, "failed to store submission",
			logger.String("username", sub.Username), logger.Error(err))
		return SubmitResult{}, err
	}

	if created {
		metrics.RecordSubmission("inserted")
	} else {
		metrics.RecordSubmission("updated")
	}
	metrics.RecordSubmittedAverageError(sub.AverageError)
	s.log().Debug(ctx, "submission stored",
		logger.String("username", entry.Username),
		logger.Bool("created", created),
		logger.Int("totalGuesses", entry.TotalGuesses))

	board, err := s.Leaderboard(ctx)
	if err != nil {
		return SubmitResult{}, &SubmitError{Stage: StageRefresh, Err: err}
	}
	if s.notifier != nil {
		s.notifier.Broadcast(ctx, board)
	}
	return SubmitResult{Leaderboard: board, Entry: entry, Created: created}, nil
}

// upsert looks the player up and updates or inserts. An insert that loses a
// race against a concurrent insert is retried as an update.
func (s *Service) upsert(ctx context.Context, sub model.Submission) (model.LeaderboardEntry, bool, error) {
	row := model.LeaderboardEntry{
		Username:         sub.Username,
		AverageError:     sub.AverageError,
		TotalGuesses:     sub.TotalGuesses,
		BestError:        sub.BestError,
		PerformanceLevel: sub.PerformanceLevel,
		TotalPoints:      sub.TotalPoints,
		AverageAccuracy:  sub.AverageAccuracy,
	}

	_, err := s.store.Get(ctx, sub.Username)
	switch {
	case err == nil:
		e, err := s.store.Update(ctx, row)
		if err != nil {
			return model.LeaderboardEntry{}, false, &SubmitError{Stage: StageWrite, Err: err}
		}
		return e, false, nil
	case errors.Is(err, repository.ErrNotFound):
	case errors.Is(err, repository.ErrNotConfigured):
		return model.LeaderboardEntry{}, false, err
	default:
		return model.LeaderboardEntry{}, false, &SubmitError{Stage: StageLookup, Err: err}
	}

	e, err := s.store.Insert(ctx, row)
	if errors.Is(err, repository.ErrConflict) {
		e, err = s.store.Update(ctx, row)
		if err != nil {
			return model.LeaderboardEntry{}, false, &SubmitError{Stage: StageWrite, Err: err}
		}
		return e, false, nil
	}
	if err != nil {
		return model.LeaderboardEntry{}, false, &SubmitError{Stage: StageWrite, Err: err}
	}
	return e, true, nil
}

// Rank returns the 1-based position of username.
func (s *Service) Rank(ctx context.Context, username string) (int, model.LeaderboardEntry, error) {
	return s.store.Rank(ctx, s.order, model.TruncateUsername(username))
}

// Reset deletes every row. token must match the configured admin token.
func (s *Service) Reset(ctx context.Context, token string) error {
	if s.adminToken == "" {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		return ErrUnauthorized
	}
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}
	s.deduper.Reset(ctx)
	s.log().Warn(ctx, "leaderboard reset")
	if s.notifier != nil {
		s.notifier.Broadcast(ctx, []model.LeaderboardEntry{})
	}
	return nil
}

// Order returns the configured ranking.
func (s *Service) Order() repository.Order { return s.order }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"limit":      s.limit,
		"order":      string(s.order),
		"dedupeSize": s.dedupeSize,
		"dedupeKeys": s.deduper.Size(),
	}
	players, err := s.store.Count(context.Background())
	if err != nil {
		stats["storeError"] = err.Error()
	} else {
		stats["totalPlayers"] = players
		metrics.UpdateTotalPlayers(players)
	}
	return stats
}

func (s *Service) statsLoop(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(s.statsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			if n, err := s.store.Count(ctx); err == nil {
				metrics.UpdateTotalPlayers(n)
			}
		}
	}
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "store"
}
