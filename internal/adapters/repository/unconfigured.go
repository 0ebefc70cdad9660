package repository

import (
	"context"

	"github.com/okian/guessconv/internal/domain/model"
)

// UnconfiguredStore stands in when the hosted database has no credentials.
// Every call fails with ErrNotConfigured so the API can answer with an
// empty leaderboard instead of refusing to start.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Get(context.Context, string) (model.LeaderboardEntry, error) {
	return model.LeaderboardEntry{}, ErrNotConfigured
}

func (UnconfiguredStore) Insert(context.Context, model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	return model.LeaderboardEntry{}, ErrNotConfigured
}

func (UnconfiguredStore) Update(context.Context, model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	return model.LeaderboardEntry{}, ErrNotConfigured
}

func (UnconfiguredStore) TopN(context.Context, Order, int) ([]model.LeaderboardEntry, error) {
	return nil, ErrNotConfigured
}

func (UnconfiguredStore) Rank(context.Context, Order, string) (int, model.LeaderboardEntry, error) {
	return 0, model.LeaderboardEntry{}, ErrNotConfigured
}

func (UnconfiguredStore) Count(context.Context) (int, error) { return 0, ErrNotConfigured }

func (UnconfiguredStore) Reset(context.Context) error { return ErrNotConfigured }

func (UnconfiguredStore) Close() error { return nil }

var _ Store = UnconfiguredStore{}
