package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/guessconv/internal/adapters/mq/queue"
	worker "github.com/okian/guessconv/internal/adapters/mq/worker"
	model "github.com/okian/guessconv/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var errPermanent = errors.New("permanent")

// mockSubmitter fails the first failures calls, then succeeds.
type mockSubmitter struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    []model.Submission
}

func (m *mockSubmitter) Submit(_ context.Context, sub model.Submission) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sub)
	if len(m.calls) <= m.failures {
		return nil, m.err
	}
	return []model.LeaderboardEntry{{Username: sub.Username, TotalGuesses: sub.TotalGuesses}}, nil
}

func (m *mockSubmitter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func fastOpts() []worker.Option {
	return []worker.Option{
		worker.WithBackoff(time.Millisecond, 2*time.Millisecond),
		worker.WithAttemptTimeout(time.Second),
	}
}

func runOne(sub *mockSubmitter, opts ...worker.Option) queue.Result {
	q := queue.NewInMemoryQueue()
	results := make(chan queue.Result, 1)
	w := worker.NewInMemoryWorker(q, sub, append(fastOpts(), opts...)...)
	go w.Run(context.Background())

	q.Enqueue(context.Background(), queue.Job{Seq: 7, Submission: model.Submission{Username: "ana", TotalGuesses: 2}, Result: results})
	res := <-results
	_ = q.Close()
	<-w.Done()
	return res
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker", t, func() {
		convey.Convey("When the submission succeeds at once", func() {
			sub := &mockSubmitter{}
			res := runOne(sub)

			convey.Convey("Then the leaderboard is delivered with the job sequence", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Seq, convey.ShouldEqual, 7)
				convey.So(res.Attempts, convey.ShouldEqual, 1)
				convey.So(res.Leaderboard, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the first tries fail transiently", func() {
			sub := &mockSubmitter{failures: 2, err: errors.New("connection refused")}
			res := runOne(sub, worker.WithMaxAttempts(3))

			convey.Convey("Then it retries until success", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Attempts, convey.ShouldEqual, 3)
				convey.So(sub.callCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When every try fails", func() {
			sub := &mockSubmitter{failures: 10, err: errors.New("timeout")}
			res := runOne(sub, worker.WithMaxAttempts(2))

			convey.Convey("Then it gives up after the bound", func() {
				convey.So(res.Err, convey.ShouldNotBeNil)
				convey.So(res.Attempts, convey.ShouldEqual, 2)
				convey.So(sub.callCount(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the error is not retryable", func() {
			sub := &mockSubmitter{failures: 10, err: errPermanent}
			res := runOne(sub, worker.WithRetryable(func(err error) bool { return !errors.Is(err, errPermanent) }))

			convey.Convey("Then it fails after one attempt", func() {
				convey.So(errors.Is(res.Err, errPermanent), convey.ShouldBeTrue)
				convey.So(res.Attempts, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			q := queue.NewInMemoryQueue()
			w := worker.NewInMemoryWorker(q, &mockSubmitter{})
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a single worker pool", t, func() {
		q := queue.NewInMemoryQueue()
		sub := &mockSubmitter{}
		p := worker.NewPool(1, q, sub, fastOpts()...)
		p.Start(context.Background())

		convey.Convey("When jobs are queued and the pool shuts down", func() {
			results := make(chan queue.Result, 5)
			for i := 1; i <= 5; i++ {
				q.Enqueue(context.Background(), queue.Job{
					Seq:        uint64(i),
					Submission: model.Submission{Username: "ana", TotalGuesses: i},
					Result:     results,
				})
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := p.Shutdown(ctx)

			convey.Convey("Then queued jobs are drained in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sub.callCount(), convey.ShouldEqual, 5)
				for i := 1; i <= 5; i++ {
					res := <-results
					convey.So(res.Seq, convey.ShouldEqual, uint64(i))
				}
			})

			convey.Convey("Then a second shutdown is a no-op", func() {
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
