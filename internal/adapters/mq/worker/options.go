package worker

import (
	"time"

	"github.com/okian/guessconv/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxAttempts bounds submissions per job, including the first try.
func WithMaxAttempts(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and its cap.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(w *InMemoryWorker) {
		if base > 0 && maxDelay >= base {
			w.baseBackoff = base
			w.maxBackoff = maxDelay
		}
	}
}

// WithAttemptTimeout bounds a single submission.
func WithAttemptTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.attemptTimeout = d
		}
	}
}

// WithRetryable decides whether an error is worth another attempt.
func WithRetryable(fn func(error) bool) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.retryable = fn
		}
	}
}
