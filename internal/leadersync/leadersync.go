// Package leadersync keeps a local view of the global leaderboard in step
// with the player's aggregate.
package leadersync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/guessconv/internal/adapters/client"
	"github.com/okian/guessconv/internal/adapters/mq/queue"
	"github.com/okian/guessconv/internal/adapters/mq/worker"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
)

const (
	defaultLimit           = 20
	defaultQueueCapacity   = 16
	defaultShutdownTimeout = 5 * time.Second
)

// Client is the remote leaderboard.
type Client interface {
	Submit(ctx context.Context, sub model.Submission) ([]model.LeaderboardEntry, error)
	Fetch(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// View is the locally held leaderboard.
type View struct {
	Entries []model.LeaderboardEntry
	// Err is the last fetch failure, cleared by a successful refresh.
	Err error
	// SyncErr is the last failed push. Local game state is never affected by it.
	SyncErr   error
	Loading   bool
	UpdatedAt time.Time
}

// Syncer pushes submissions through a retrying worker and keeps the view.
// It implements game.Syncer.
type Syncer struct {
	client Client
	logger logger.Logger
	now    func() time.Time

	limit           int
	queueCapacity   int
	shutdownTimeout time.Duration
	workerOpts      []worker.Option
	onUpdate        func(View)

	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	results chan queue.Result
	stop    chan struct{}
	stopped chan struct{}

	seq      atomic.Uint64
	pending  atomic.Int64
	fetching atomic.Int64
	started  atomic.Bool
	closed   atomic.Bool

	mu      sync.RWMutex
	view    View
	applied uint64
	// pushes numbered at or below resetFloor were queued before the last reset
	resetFloor uint64
	resets     uint64
}

// New creates a Syncer. Start must be called before submissions are pushed.
func New(c Client, opts ...Option) *Syncer {
	s := &Syncer{
		client:          c,
		logger:          logger.Nop(),
		now:             time.Now,
		limit:           defaultLimit,
		queueCapacity:   defaultQueueCapacity,
		shutdownTimeout: defaultShutdownTimeout,
		stop:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueCapacity))
	s.results = make(chan queue.Result, s.queueCapacity)

	wopts := append([]worker.Option{
		worker.WithLogger(s.logger),
		worker.WithRetryable(Retryable),
	}, s.workerOpts...)
	// One worker keeps pushes from this player in order.
	s.pool = worker.NewPool(1, s.queue, c, wopts...)
	return s
}

// Retryable reports whether a failed push is worth repeating. Rejections and
// malformed replies will not change on retry.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, client.ErrRejected),
		errors.Is(err, client.ErrDecode),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Start launches the worker and the result collector.
func (s *Syncer) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.pool.Start(ctx)
	go s.collect(ctx)
}

// UpdateLeaderboard queues sub for pushing. It never blocks on the network
// and is a no-op for a player with no guesses.
func (s *Syncer) UpdateLeaderboard(ctx context.Context, sub model.Submission) {
	if sub.TotalGuesses == 0 {
		return
	}
	if s.closed.Load() {
		s.logger.Debug(ctx, "sync closed, dropping submission")
		return
	}
	j := queue.Job{
		Seq:        s.seq.Add(1),
		Submission: sub,
		EnqueuedAt: s.now(),
		Result:     s.results,
	}
	s.pending.Add(1)
	if !s.queue.Enqueue(ctx, j) {
		s.pending.Add(-1)
		s.logger.Warn(ctx, "could not queue leaderboard update",
			logger.String("username", sub.Username),
			logger.Int("total_guesses", sub.TotalGuesses))
		s.setSyncErr(ErrQueueFull)
		return
	}
	s.logger.Debug(ctx, "leaderboard update queued",
		logger.Any("seq", j.Seq), logger.String("key", sub.IdempotencyKey))
	s.notify()
}

// FetchLeaderboard replaces the view with the server's current board. On
// failure the previous entries are kept and View().Err reports the failure.
func (s *Syncer) FetchLeaderboard(ctx context.Context) error {
	s.mu.RLock()
	resets := s.resets
	s.mu.RUnlock()
	snapshot := s.seq.Load()
	s.fetching.Add(1)
	s.notify()

	entries, err := s.client.Fetch(ctx)
	s.fetching.Add(-1)

	s.mu.Lock()
	if err != nil {
		s.view.Err = err
		s.mu.Unlock()
		s.logger.Warn(ctx, "failed to fetch leaderboard", logger.Error(err))
		s.notify()
		return err
	}
	if snapshot >= s.applied && resets == s.resets {
		s.applied = snapshot
		s.view.Entries = s.bound(entries)
		s.view.UpdatedAt = s.now()
	}
	s.view.Err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// ResetLeaderboard clears the local view. The server is not touched.
func (s *Syncer) ResetLeaderboard() {
	s.mu.Lock()
	s.view = View{}
	s.applied = s.seq.Load()
	s.resetFloor = s.applied
	s.resets++
	s.mu.Unlock()
	s.notify()
}

// View returns a copy of the current view.
func (s *Syncer) View() View {
	s.mu.RLock()
	v := s.view
	v.Entries = append([]model.LeaderboardEntry(nil), s.view.Entries...)
	s.mu.RUnlock()
	v.Loading = s.pending.Load() > 0 || s.fetching.Load() > 0
	return v
}

// Pending returns the number of pushes not yet answered.
func (s *Syncer) Pending() int { return int(s.pending.Load()) }

// Close stops accepting submissions and waits, bounded by the shutdown
// timeout, for queued pushes to finish.
func (s *Syncer) Close(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	err := s.pool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "leaderboard sync did not drain", logger.Int("pending", s.Pending()), logger.Error(err))
	}
	close(s.stop)
	<-s.stopped
	return err
}

func (s *Syncer) collect(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case r := <-s.results:
			s.apply(ctx, r)
		case <-s.stop:
			for {
				select {
				case r := <-s.results:
					s.apply(ctx, r)
				default:
					return
				}
			}
		}
	}
}

// apply installs r unless a newer result already landed or r was queued
// before the last reset.
func (s *Syncer) apply(ctx context.Context, r queue.Result) {
	s.pending.Add(-1)
	if r.Err != nil {
		s.setSyncErr(r.Err)
		return
	}

	s.mu.Lock()
	if applied := s.applied; r.Seq < applied || r.Seq <= s.resetFloor {
		s.mu.Unlock()
		s.logger.Debug(ctx, "discarding stale leaderboard",
			logger.Any("seq", r.Seq), logger.Any("applied", applied))
		s.notify()
		return
	}
	s.applied = r.Seq
	s.view.Entries = s.bound(r.Leaderboard)
	s.view.SyncErr = nil
	s.view.UpdatedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug(ctx, "leaderboard synced",
		logger.String("username", r.Submission.Username),
		logger.Int("attempts", r.Attempts))
	s.notify()
}

func (s *Syncer) setSyncErr(err error) {
	s.mu.Lock()
	s.view.SyncErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *Syncer) bound(in []model.LeaderboardEntry) []model.LeaderboardEntry {
	if len(in) > s.limit {
		in = in[:s.limit]
	}
	return append([]model.LeaderboardEntry(nil), in...)
}

func (s *Syncer) notify() {
	if s.onUpdate != nil {
		s.onUpdate(s.View())
	}
}
