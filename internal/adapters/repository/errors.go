package repository

import "errors"

// Sentinel kinds for leaderboard store errors.
var (
	ErrNotFound      = errors.New("player not found")
	ErrConflict      = errors.New("player already exists")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
	ErrInvalidOrder  = errors.New("invalid leaderboard order")
	ErrNotConfigured = errors.New("database configuration missing")
)
