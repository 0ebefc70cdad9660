package leadersync

import (
	"time"

	"github.com/okian/guessconv/internal/adapters/mq/worker"
	"github.com/okian/guessconv/pkg/logger"
)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimit bounds the number of rows kept in the view.
func WithLimit(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithQueueCapacity sets how many pending submissions are buffered.
func WithQueueCapacity(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight pushes.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithWorkerOptions passes options through to the sync worker.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(s *Syncer) {
		s.workerOpts = append(s.workerOpts, opts...)
	}
}

// WithOnUpdate registers a callback invoked with the new view whenever it changes.
func WithOnUpdate(fn func(View)) Option {
	return func(s *Syncer) {
		s.onUpdate = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}
