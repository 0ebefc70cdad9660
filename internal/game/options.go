package game

import "github.com/okian/guessconv/pkg/logger"

// Option applies a configuration option to a Session.
type Option func(*Session)

// WithSyncer sets the leaderboard syncer notified after each guess.
func WithSyncer(syncer Syncer) Option {
	return func(s *Session) {
		if syncer != nil {
			s.syncer = syncer
		}
	}
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the entry id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) {
		if gen != nil {
			s.newID = gen
		}
	}
}
