// Package worker pushes queued leaderboard submissions to the server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/guessconv/internal/adapters/mq/queue"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/okian/guessconv/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultMaxAttempts    = 3
	defaultBaseBackoff    = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultAttemptTimeout = 5 * time.Second
)

// Submitter sends one submission and returns the refreshed leaderboard.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) ([]model.LeaderboardEntry, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is closed and drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Done is closed when Run returns.
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker with bounded retries.
type InMemoryWorker struct {
	queue     Queue
	submitter Submitter
	name      string

	maxAttempts    int
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	attemptTimeout time.Duration
	retryable      func(error) bool

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, submitter Submitter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		submitter:      submitter,
		name:           "worker",
		maxAttempts:    defaultMaxAttempts,
		baseBackoff:    defaultBaseBackoff,
		maxBackoff:     defaultMaxBackoff,
		attemptTimeout: defaultAttemptTimeout,
		retryable:      func(error) bool { return true },
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	res := queue.Result{Seq: j.Seq, Submission: j.Submission}

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		res.Attempts = attempt
		attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
		res.Leaderboard, res.Err = w.submitter.Submit(attemptCtx, j.Submission)
		cancel()

		if res.Err == nil || !w.retryable(res.Err) || attempt == w.maxAttempts {
			break
		}
		metrics.RecordSyncRetry()
		w.logger.Warn(ctx, "leaderboard sync failed, retrying",
			logger.Int("attempt", attempt), logger.Error(res.Err))
		if err := sleep(ctx, w.backoff(attempt)); err != nil {
			res.Err = errors.Join(res.Err, err)
			break
		}
	}

	metrics.RecordSyncLatency(float64(time.Since(start).Milliseconds()))
	if res.Err != nil {
		metrics.RecordSyncJob("failed")
		w.logger.Error(ctx, "leaderboard sync failed",
			logger.String("username", j.Submission.Username),
			logger.Int("attempts", res.Attempts),
			logger.Error(res.Err))
		res.Err = fmt.Errorf("sync %s after %d attempt(s): %w", j.Submission.Username, res.Attempts, res.Err)
	} else {
		metrics.RecordSyncJob("ok")
	}

	if j.Result != nil {
		select {
		case j.Result <- res:
		case <-ctx.Done():
		}
	}
}

// backoff doubles from baseBackoff per attempt, capped at maxBackoff.
func (w *InMemoryWorker) backoff(attempt int) time.Duration {
	d := w.baseBackoff << (attempt - 1)
	if d <= 0 || d > w.maxBackoff {
		return w.maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	once    sync.Once
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Use a single worker when
// submissions from one player must reach the server in order.
func NewPool(workerCount int, q Queue, submitter Submitter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := range p.workers {
		wopts := append(append([]Option(nil), opts...), WithName("sync-worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, submitter, wopts...)
	}
	p.logger = p.workers[0].logger
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. When ctx
// expires first, in-flight jobs are canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		for i, w := range p.workers {
			select {
			case <-w.done:
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
			}
			if err != nil {
				break
			}
		}
		if p.cancel != nil {
			p.cancel()
		}
	})
	return err
}
