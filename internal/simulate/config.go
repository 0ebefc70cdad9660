// Package simulate drives many simulated players against a leaderboard
// server and checks that the resulting board is consistent.
package simulate

import (
	"errors"
	"time"
)

// Defaults.
const (
	DefaultPlayers = 25
	DefaultRounds  = 5
	DefaultWorkers = 8
)

// ErrInvalidConfig is returned for unusable settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for a simulation run.
type Config struct {
	Players int           // number of simulated players
	Rounds  int           // guesses per player
	Workers int           // players playing at the same time
	Timeout time.Duration // per request
	// Order is the ranking the server uses; verification follows it.
	Order string
	// Seed makes guesses reproducible. Zero picks a random seed.
	Seed    uint64
	Verbose bool
}

// Validate checks c.
func (c Config) Validate() error {
	switch {
	case c.Players < 1:
		return errors.Join(ErrInvalidConfig, errors.New("players must be positive"))
	case c.Rounds < 1:
		return errors.Join(ErrInvalidConfig, errors.New("rounds must be positive"))
	case c.Workers < 1:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Players           int
	Guesses           int
	Submitted         int
	Successful        int
	Failed            int
	RanksChecked      int
	RankMismatches    int
	LeaderboardRows   int
	LeaderboardSorted bool
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
