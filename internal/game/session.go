package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
)

// Syncer receives the aggregate after every accepted guess. Implementations
// must not block on the network.
type Syncer interface {
	UpdateLeaderboard(ctx context.Context, sub model.Submission)
}

type nopSyncer struct{}

func (nopSyncer) UpdateLeaderboard(context.Context, model.Submission) {}

// Session owns a State and keeps it persisted and synced.
type Session struct {
	mu      sync.Mutex
	state   *State
	storage Storage
	syncer  Syncer
	logger  logger.Logger
	newID   func() string
}

// NewSession loads the stored state, or starts a fresh one when none exists.
func NewSession(ctx context.Context, storage Storage, opts ...Option) (*Session, error) {
	s := &Session{
		storage: storage,
		syncer:  nopSyncer{},
		logger:  logger.Nop(),
		newID:   newEntryID,
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, found, err := storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		s.state = NewState()
		return s, nil
	}
	st, drift := Restore(snap)
	if drift {
		s.logger.Warn(ctx, "stored total points disagree with history, recomputed",
			logger.Int("stored", snap.TotalPoints), logger.Int("recomputed", st.TotalPoints()))
	}
	s.state = st
	return s, nil
}

// Guess scores input against company. Rejected input leaves the state
// untouched and returns model.ErrInvalidNumber or model.ErrOutOfRange.
func (s *Session) Guess(ctx context.Context, input string, company dataset.Company) (model.ScoreEntry, error) {
	guess, err := model.ParseGuess(input)
	if err != nil {
		return model.ScoreEntry{}, err
	}
	entry, err := model.NewScoreEntry(s.newID(), company.Company, company.Funnel, guess, company.Conversion)
	if err != nil {
		return model.ScoreEntry{}, err
	}

	s.mu.Lock()
	entry, err = s.state.AddScore(entry)
	if err != nil {
		s.mu.Unlock()
		return model.ScoreEntry{}, err
	}
	sub, _ := s.state.Submission()
	saveErr := s.save(ctx)
	s.mu.Unlock()

	s.logger.Debug(ctx, "guess scored",
		logger.String("product", entry.Product),
		logger.Float64("error", entry.Error),
		logger.Int("points", entry.Points))

	s.syncer.UpdateLeaderboard(ctx, sub)
	return entry, saveErr
}

// Clear drops the whole history. Irreversible.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearScores()
	return s.save(ctx)
}

// SetUsername renames the player; the name is cut to 10 characters.
func (s *Session) SetUsername(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetUsername(name)
	return s.state.Username(), s.save(ctx)
}

// Sync pushes the current aggregate, if any.
func (s *Session) Sync(ctx context.Context) bool {
	s.mu.Lock()
	sub, ok := s.state.Submission()
	s.mu.Unlock()
	if ok {
		s.syncer.UpdateLeaderboard(ctx, sub)
	}
	return ok
}

// Username returns the current player name.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Username()
}

// Scores returns the history, oldest first.
func (s *Session) Scores() []model.ScoreEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Scores()
}

// Aggregate returns the derived summary.
func (s *Session) Aggregate() Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Aggregate()
}

// must be called with s.mu held
func (s *Session) save(ctx context.Context) error {
	if err := s.storage.Save(ctx, s.state.Snapshot()); err != nil {
		s.logger.Error(ctx, "failed to persist game state", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
