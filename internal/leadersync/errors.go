package leadersync

import "errors"

var (
	// ErrNotStarted is returned by Close before Start.
	ErrNotStarted = errors.New("leaderboard sync not started")
	// ErrQueueFull is reported when a submission could not be queued.
	ErrQueueFull = errors.New("sync queue full")
)
