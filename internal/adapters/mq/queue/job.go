package queue

import (
	"time"

	"github.com/okian/guessconv/internal/domain/model"
)

// Job asks a worker to push one submission to the leaderboard.
type Job struct {
	// Seq orders jobs from one producer; higher is newer.
	Seq        uint64
	Submission model.Submission
	EnqueuedAt time.Time

	// Result receives exactly one Result when non-nil.
	Result chan<- Result
}

// Result is the outcome of a Job.
type Result struct {
	Seq         uint64
	Submission  model.Submission
	Leaderboard []model.LeaderboardEntry
	Attempts    int
	Err         error
}
