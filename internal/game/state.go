// Package game holds a player's guess history and the aggregates derived from it.
package game

import (
	"fmt"
	"math"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/scoring"
)

const epochLength = 8

// Aggregate is derived from the full entry sequence.
type Aggregate struct {
	Count           int
	TotalPoints     int
	AverageError    float64
	AverageAccuracy float64
	BestError       float64
	LastPoints      int
}

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Scores          []model.ScoreEntry `json:"scores"`
	Username        string             `json:"username"`
	TotalPoints     int                `json:"totalPoints"`
	LastPoints      int                `json:"lastPoints"`
	AverageAccuracy float64            `json:"averageAccuracy"`
	Epoch           string             `json:"epoch,omitempty"`
}

// State is one player's game. It is not safe for concurrent use; Session
// serializes access.
type State struct {
	scores   []model.ScoreEntry
	username string
	epoch    string

	// running counters persisted alongside scores
	totalPoints     int
	lastPoints      int
	averageAccuracy float64
}

// NewState returns an empty game for the default user.
func NewState() *State {
	return &State{username: model.DefaultUsername, epoch: newEpoch()}
}

// Restore rebuilds a State from a snapshot. Stored entries are rescored from
// their guess and actual values; entries outside 0..100 are dropped. drift
// reports whether any entry or the running total had to be repaired.
func Restore(s Snapshot) (st *State, drift bool) {
	st = &State{
		username:        s.Username,
		epoch:           s.Epoch,
		totalPoints:     s.TotalPoints,
		lastPoints:      s.LastPoints,
		averageAccuracy: s.AverageAccuracy,
	}
	for _, stored := range s.Scores {
		e, err := rescore(stored)
		if err != nil {
			drift = true
			continue
		}
		if e != stored {
			drift = true
		}
		st.scores = append(st.scores, e)
	}
	if st.username == "" {
		st.username = model.DefaultUsername
	}
	if st.epoch == "" {
		st.epoch = newEpoch()
	}
	agg := st.Aggregate()
	if agg.TotalPoints != st.totalPoints {
		drift = true
		st.totalPoints = agg.TotalPoints
	}
	if drift {
		st.lastPoints = agg.LastPoints
	}
	st.averageAccuracy = agg.AverageAccuracy
	return st, drift
}

// rescore rebuilds e through model.NewScoreEntry so Error is |guess-actual|,
// then fills points and accuracy.
func rescore(e model.ScoreEntry) (model.ScoreEntry, error) {
	out, err := model.NewScoreEntry(e.ID, e.Product, e.Funnel, e.Guess, e.Actual)
	if err != nil {
		return model.ScoreEntry{}, err
	}
	out.Points = scoring.PointsFor(out.Error)
	out.AccuracyPercentage = scoring.AccuracyFor(out.Error)
	return out, nil
}

// Snapshot returns the persisted form.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Scores:          append([]model.ScoreEntry(nil), s.scores...),
		Username:        s.username,
		TotalPoints:     s.totalPoints,
		LastPoints:      s.lastPoints,
		AverageAccuracy: s.averageAccuracy,
		Epoch:           s.epoch,
	}
}

// AddScore scores entry, appends it and updates the running counters. The
// error is recomputed from Guess and Actual; values outside 0..100 are
// refused with model.ErrOutOfRange and leave the state untouched.
func (s *State) AddScore(entry model.ScoreEntry) (model.ScoreEntry, error) {
	entry, err := rescore(entry)
	if err != nil {
		return model.ScoreEntry{}, err
	}

	s.scores = append(s.scores, entry)
	s.totalPoints += entry.Points
	s.lastPoints = entry.Points

	var acc float64
	for _, e := range s.scores {
		acc += e.AccuracyPercentage
	}
	s.averageAccuracy = acc / float64(len(s.scores))
	return entry, nil
}

// ClearScores empties the history and starts a new epoch so idempotency keys
// issued before the clear can never match keys issued after it.
func (s *State) ClearScores() {
	s.scores = nil
	s.totalPoints = 0
	s.lastPoints = 0
	s.averageAccuracy = 0
	s.epoch = newEpoch()
}

// SetUsername stores name cut to model.MaxUsernameLength runes. A blank
// name falls back to the default.
func (s *State) SetUsername(name string) {
	name = model.TruncateUsername(name)
	if name == "" {
		name = model.DefaultUsername
	}
	s.username = name
}

// Username returns the current player name.
func (s *State) Username() string { return s.username }

// Epoch returns the current history generation.
func (s *State) Epoch() string { return s.epoch }

// Scores returns a copy of the history, oldest first.
func (s *State) Scores() []model.ScoreEntry {
	return append([]model.ScoreEntry(nil), s.scores...)
}

// TotalPoints returns the running points counter.
func (s *State) TotalPoints() int { return s.totalPoints }

// Aggregate derives the summary from the entry sequence.
func (s *State) Aggregate() Aggregate {
	n := len(s.scores)
	if n == 0 {
		return Aggregate{}
	}
	agg := Aggregate{Count: n, BestError: math.Inf(1), LastPoints: s.scores[n-1].Points}
	var errSum, accSum float64
	for _, e := range s.scores {
		agg.TotalPoints += e.Points
		errSum += e.Error
		accSum += e.AccuracyPercentage
		agg.BestError = math.Min(agg.BestError, e.Error)
	}
	agg.AverageError = errSum / float64(n)
	agg.AverageAccuracy = accSum / float64(n)
	return agg
}

// Submission builds the leaderboard payload for the current history.
// ok is false when there is nothing to submit.
func (s *State) Submission() (sub model.Submission, ok bool) {
	agg := s.Aggregate()
	if agg.Count == 0 {
		return model.Submission{}, false
	}
	return model.Submission{
		Username:         s.username,
		AverageError:     agg.AverageError,
		TotalGuesses:     agg.Count,
		BestError:        agg.BestError,
		PerformanceLevel: scoring.PerformanceLevel(agg.AverageError),
		TotalPoints:      s.totalPoints,
		AverageAccuracy:  s.averageAccuracy,
		IdempotencyKey:   IdempotencyKey(s.username, s.epoch, agg.Count),
	}, true
}

// IdempotencyKey identifies one submission of a history generation.
func IdempotencyKey(username, epoch string, count int) string {
	return fmt.Sprintf("%s:%s:%d", username, epoch, count)
}

func newEpoch() string {
	id, err := gonanoid.New(epochLength)
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id
}

func newEntryID() string {
	id, err := gonanoid.New()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	return id
}
