package repository

import (
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/okian/guessconv/pkg/logger"
)

// settings are shared by every Store implementation.
type settings struct {
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

func defaultSettings() settings {
	return settings{
		now:    time.Now,
		newID:  newRowID,
		logger: logger.Nop(),
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a Store.
type Option func(*settings)

// WithClock sets the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the row id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newRowID() string {
	id, err := gonanoid.New()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id
}
