package client

import "errors"

var (
	// ErrUnavailable is returned when the server could not be reached, answered
	// with a non-200 status or reported a store failure.
	ErrUnavailable = errors.New("leaderboard service unavailable")
	// ErrRejected is returned when the server refused the request itself.
	ErrRejected = errors.New("leaderboard request rejected")
	// ErrNotFound is returned by Rank for unknown players.
	ErrNotFound = errors.New("player not found")
	// ErrDecode is returned when a response body is not valid JSON.
	ErrDecode = errors.New("malformed response")
)
