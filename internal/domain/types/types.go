// Package types contains the JSON wire types shared by the server and the client.
package types

import (
	"strings"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
)

// LeaderboardEntry is a leaderboard row on the wire. LastUpdated is epoch milliseconds.
type LeaderboardEntry struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	AverageError     float64 `json:"averageError"`
	TotalGuesses     int     `json:"totalGuesses"`
	BestError        float64 `json:"bestError"`
	PerformanceLevel string  `json:"performanceLevel"`
	TotalPoints      int     `json:"totalPoints"`
	AverageAccuracy  float64 `json:"averageAccuracy"`
	LastUpdated      int64   `json:"lastUpdated"`
}

// LeaderboardResponse is returned by every leaderboard endpoint. Error is set
// instead of a non-200 status when the board cannot be served.
type LeaderboardResponse struct {
	Error       string             `json:"error,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// SubmissionRequest is the POST /api/leaderboard body.
type SubmissionRequest struct {
	Username         string   `json:"username"`
	AverageError     float64  `json:"averageError"`
	TotalGuesses     int      `json:"totalGuesses"`
	BestError        float64  `json:"bestError"`
	PerformanceLevel string   `json:"performanceLevel"`
	TotalPoints      *int     `json:"totalPoints,omitempty"`
	AverageAccuracy  *float64 `json:"averageAccuracy,omitempty"`
	IdempotencyKey   string   `json:"idempotencyKey,omitempty"`
}

// RankResponse is returned by GET /api/leaderboard/{username}.
type RankResponse struct {
	Rank  int              `json:"rank"`
	Entry LeaderboardEntry `json:"entry"`
}

// ErrorResponse is the body of non-leaderboard error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromModel converts a stored row to its wire form.
func FromModel(e model.LeaderboardEntry) LeaderboardEntry {
	return LeaderboardEntry{
		ID:               e.ID,
		Username:         e.Username,
		AverageError:     e.AverageError,
		TotalGuesses:     e.TotalGuesses,
		BestError:        e.BestError,
		PerformanceLevel: e.PerformanceLevel,
		TotalPoints:      e.TotalPoints,
		AverageAccuracy:  e.AverageAccuracy,
		LastUpdated:      e.LastUpdated.UnixMilli(),
	}
}

// FromModels converts a slice; the result is never nil so it encodes as [].
func FromModels(in []model.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(in))
	for _, e := range in {
		out = append(out, FromModel(e))
	}
	return out
}

// ToModel converts a wire row back. Used by the client.
func (e LeaderboardEntry) ToModel() model.LeaderboardEntry {
	return model.LeaderboardEntry{
		ID:               e.ID,
		Username:         e.Username,
		AverageError:     e.AverageError,
		TotalGuesses:     e.TotalGuesses,
		BestError:        e.BestError,
		PerformanceLevel: e.PerformanceLevel,
		TotalPoints:      e.TotalPoints,
		AverageAccuracy:  e.AverageAccuracy,
		LastUpdated:      time.UnixMilli(e.LastUpdated),
	}
}

// ToModel converts a request body into a submission. Missing optional totals become zero.
func (r SubmissionRequest) ToModel() model.Submission {
	s := model.Submission{
		Username:         r.Username,
		AverageError:     r.AverageError,
		TotalGuesses:     r.TotalGuesses,
		BestError:        r.BestError,
		PerformanceLevel: r.PerformanceLevel,
		IdempotencyKey:   r.IdempotencyKey,
	}
	if r.TotalPoints != nil {
		s.TotalPoints = *r.TotalPoints
	}
	if r.AverageAccuracy != nil {
		s.AverageAccuracy = *r.AverageAccuracy
	}
	return s
}

// NewSubmissionRequest builds a request body from a submission.
func NewSubmissionRequest(s model.Submission) SubmissionRequest {
	points, acc := s.TotalPoints, s.AverageAccuracy
	return SubmissionRequest{
		Username:         s.Username,
		AverageError:     s.AverageError,
		TotalGuesses:     s.TotalGuesses,
		BestError:        s.BestError,
		PerformanceLevel: s.PerformanceLevel,
		TotalPoints:      &points,
		AverageAccuracy:  &acc,
		IdempotencyKey:   s.IdempotencyKey,
	}
}

// Messages carried in LeaderboardResponse.Error. The prefixed ones are
// followed by the store error text.
const (
	MsgNotConfigured   = "Database configuration missing"
	MsgInvalidBody     = "Invalid request body"
	MsgInvalidNumbers  = "Invalid submission values"
	MsgFetchFailed     = "Failed to fetch leaderboard: "
	MsgLookupFailed    = "Database error: "
	MsgUpdateFailed    = "Failed to update leaderboard: "
	MsgRefreshFailed   = "Failed to fetch updated leaderboard: "
	MsgOperationFailed = "Database operation failed"
)

// StoreFailure reports whether msg describes a failing store rather than a
// bad request. Those replies may succeed when repeated.
func StoreFailure(msg string) bool {
	if msg == MsgOperationFailed {
		return true
	}
	for _, p := range []string{MsgFetchFailed, MsgLookupFailed, MsgUpdateFailed, MsgRefreshFailed} {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}
