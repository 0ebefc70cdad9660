// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Username limits.
const (
	MaxUsernameLength = 10
	DefaultUsername   = "Anonymous"
)

// Percent is a value in percentage points, 0..100.
type Percent float64

// Valid reports whether p is a finite value within 0..100.
func (p Percent) Valid() bool {
	f := float64(p)
	return !math.IsNaN(f) && f >= 0 && f <= 100
}

// ParseGuess turns raw user input into a Percent.
// Non-numeric input yields ErrInvalidNumber; numbers outside 0..100 yield ErrOutOfRange.
func ParseGuess(input string) (Percent, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, ErrInvalidNumber
	}
	if f < 0 || f > 100 {
		return 0, ErrOutOfRange
	}
	return Percent(f), nil
}

// ScoreEntry records one answered question. Immutable once appended to a history.
type ScoreEntry struct {
	ID                 string  `json:"id"`
	Product            string  `json:"product"`
	Funnel             string  `json:"funnel"`
	Guess              Percent `json:"guess"`
	Actual             Percent `json:"actual"`
	Error              float64 `json:"error"`
	Points             int     `json:"points"`
	AccuracyPercentage float64 `json:"accuracyPercentage"`
}

// NewScoreEntry builds an entry whose Error is |guess-actual|.
// Points and AccuracyPercentage are filled when the entry is added to a game.
func NewScoreEntry(id, product, funnel string, guess, actual Percent) (ScoreEntry, error) {
	if !guess.Valid() {
		return ScoreEntry{}, fmt.Errorf("guess %v: %w", float64(guess), ErrOutOfRange)
	}
	if !actual.Valid() {
		return ScoreEntry{}, fmt.Errorf("actual %v: %w", float64(actual), ErrOutOfRange)
	}
	return ScoreEntry{
		ID:      id,
		Product: product,
		Funnel:  funnel,
		Guess:   guess,
		Actual:  actual,
		Error:   math.Abs(float64(guess) - float64(actual)),
	}, nil
}

// LeaderboardEntry is one player's row. One per username; last write wins.
type LeaderboardEntry struct {
	ID               string
	Username         string
	AverageError     float64
	TotalGuesses     int
	BestError        float64
	PerformanceLevel string
	TotalPoints      int
	AverageAccuracy  float64
	LastUpdated      time.Time
}

// Submission is what a client pushes to the leaderboard.
type Submission struct {
	Username         string
	AverageError     float64
	TotalGuesses     int
	BestError        float64
	PerformanceLevel string
	TotalPoints      int
	AverageAccuracy  float64
	IdempotencyKey   string
}

// TruncateUsername trims whitespace and cuts name to MaxUsernameLength runes.
func TruncateUsername(name string) string {
	name = strings.TrimSpace(name)
	r := []rune(name)
	if len(r) > MaxUsernameLength {
		r = r[:MaxUsernameLength]
	}
	return string(r)
}

// Validate checks the numeric fields of a submission.
func (s Submission) Validate() error {
	for _, f := range []float64{s.AverageError, s.BestError, s.AverageAccuracy} {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return ErrInvalidSubmission
		}
	}
	if s.TotalGuesses < 0 || s.TotalPoints < 0 {
		return ErrInvalidSubmission
	}
	return nil
}
