package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeServer records the last request and answers with a scripted handler.
type fakeServer struct {
	mu      sync.Mutex
	lastKey string
	lastReq types.SubmissionRequest
	handler http.HandlerFunc
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastKey = r.Header.Get(IdempotencyHeader)
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&f.lastReq)
	}
	h := f.handler
	f.mu.Unlock()
	h(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func board() types.LeaderboardResponse {
	return types.LeaderboardResponse{Leaderboard: []types.LeaderboardEntry{
		{ID: "1", Username: "ana", AverageError: 2.5, TotalGuesses: 4, BestError: 1, PerformanceLevel: "Conversion Wizard", TotalPoints: 300, LastUpdated: 1700000000000},
		{ID: "2", Username: "bo", AverageError: 7, TotalGuesses: 2, BestError: 4, PerformanceLevel: "Funnel Expert", TotalPoints: 75},
	}}
}

func TestNew(t *testing.T) {
	Convey("Given base urls", t, func() {
		c, err := New("http://localhost:9080/")
		So(err, ShouldBeNil)
		So(c.baseURL, ShouldEqual, "http://localhost:9080")

		_, err = New("localhost")
		So(err, ShouldNotBeNil)
		_, err = New("")
		So(err, ShouldNotBeNil)
	})
}

func TestClient(t *testing.T) {
	Convey("Given a leaderboard server", t, func() {
		fs := &fakeServer{handler: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, board())
		}}
		srv := httptest.NewServer(fs)
		defer srv.Close()

		c, err := New(srv.URL, WithTimeout(2*time.Second))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When fetching", func() {
			entries, err := c.Fetch(ctx)

			Convey("Then rows are decoded in order", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Username, ShouldEqual, "ana")
				So(entries[0].LastUpdated.UnixMilli(), ShouldEqual, int64(1700000000000))
				So(entries[1].PerformanceLevel, ShouldEqual, "Funnel Expert")
			})
		})

		Convey("When submitting", func() {
			sub := model.Submission{
				Username: "ana", AverageError: 2.5, TotalGuesses: 4, BestError: 1,
				PerformanceLevel: "Conversion Wizard", TotalPoints: 300, AverageAccuracy: 97.5,
				IdempotencyKey: "ana:ep:4",
			}
			entries, err := c.Submit(ctx, sub)

			Convey("Then the body and idempotency header are sent", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				fs.mu.Lock()
				defer fs.mu.Unlock()
				So(fs.lastKey, ShouldEqual, "ana:ep:4")
				So(fs.lastReq.Username, ShouldEqual, "ana")
				So(fs.lastReq.TotalGuesses, ShouldEqual, 4)
				So(*fs.lastReq.TotalPoints, ShouldEqual, 300)
				So(*fs.lastReq.AverageAccuracy, ShouldEqual, 97.5)
			})
		})

		Convey("When the server replies with an error payload", func() {
			fs.mu.Lock()
			fs.handler = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, types.LeaderboardResponse{Error: "Database configuration missing", Leaderboard: []types.LeaderboardEntry{}})
			}
			fs.mu.Unlock()
			_, err := c.Fetch(ctx)

			Convey("Then ErrRejected carries the message", func() {
				So(errors.Is(err, ErrRejected), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Database configuration missing")
			})
		})

		Convey("When the server reports a store failure", func() {
			fs.mu.Lock()
			fs.handler = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, types.LeaderboardResponse{Error: types.MsgLookupFailed + "database is locked", Leaderboard: []types.LeaderboardEntry{}})
			}
			fs.mu.Unlock()
			_, err := c.Fetch(ctx)

			Convey("Then it is ErrUnavailable rather than ErrRejected", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, ErrRejected), ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "database is locked")
			})
		})

		Convey("When the server fails", func() {
			fs.mu.Lock()
			fs.handler = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "Internal server error"})
			}
			fs.mu.Unlock()
			_, err := c.Fetch(ctx)

			Convey("Then ErrUnavailable is returned", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			fs.mu.Lock()
			fs.handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<html>"))
			}
			fs.mu.Unlock()
			_, err := c.Fetch(ctx)

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When asking for a rank", func() {
			fs.mu.Lock()
			fs.handler = func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/leaderboard/ana" {
					writeJSON(w, http.StatusOK, types.RankResponse{Rank: 1, Entry: board().Leaderboard[0]})
					return
				}
				writeJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "Player not found"})
			}
			fs.mu.Unlock()

			rank, entry, err := c.Rank(ctx, "ana")
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 1)
			So(entry.Username, ShouldEqual, "ana")

			_, _, err = c.Rank(ctx, "ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Fetch(cctx)

			Convey("Then no request is made", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given no server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, err := New(addr, WithTimeout(500*time.Millisecond))
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err = c.Fetch(ctx)

		Convey("Then the failure is ErrUnavailable", func() {
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})
	})
}
