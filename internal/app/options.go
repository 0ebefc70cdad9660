package service

import (
	"time"

	"github.com/okian/guessconv/internal/adapters/repository"
	"github.com/okian/guessconv/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the leaderboard store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLeaderboardLimit sets how many rows the leaderboard returns.
func WithLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithOrder sets the ranking order.
func WithOrder(order repository.Order) Option {
	return func(s *Service) {
		if order != "" {
			s.order = order
		}
	}
}

// WithNotifier sets who is told about leaderboard changes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithAdminToken enables Reset for callers presenting token.
func WithAdminToken(token string) Option {
	return func(s *Service) {
		s.adminToken = token
	}
}

// WithStatsInterval sets how often gauges are refreshed. Zero disables the loop.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		s.statsInterval = d
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
