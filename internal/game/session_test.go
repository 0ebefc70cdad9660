package game

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingSyncer struct {
	mu   sync.Mutex
	subs []model.Submission
}

func (r *recordingSyncer) UpdateLeaderboard(_ context.Context, sub model.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
}

type failingStorage struct{ Storage }

func (failingStorage) Save(context.Context, Snapshot) error { return errors.New("disk full") }

func counterIDs() func() string {
	n := 0
	return func() string { n++; return strconv.Itoa(n) }
}

func TestSessionGuess(t *testing.T) {
	ctx := context.Background()
	acme := dataset.Company{Company: "Acme", Funnel: "Trial to paid", Conversion: 30}

	Convey("Given a session backed by a file", t, func() {
		path := filepath.Join(t.TempDir(), "state.json")
		syncer := &recordingSyncer{}
		s, err := NewSession(ctx, NewFileStorage(path), WithSyncer(syncer), WithIDGenerator(counterIDs()))
		So(err, ShouldBeNil)

		Convey("When the input is not a number", func() {
			_, err := s.Guess(ctx, "abc", acme)

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrInvalidNumber), ShouldBeTrue)
				So(s.Scores(), ShouldBeEmpty)
				So(syncer.subs, ShouldBeEmpty)
			})
		})

		Convey("When the input is out of range", func() {
			_, err := s.Guess(ctx, "101", acme)
			So(errors.Is(err, model.ErrOutOfRange), ShouldBeTrue)
			So(s.Scores(), ShouldBeEmpty)
		})

		Convey("When the input is accepted", func() {
			e, err := s.Guess(ctx, "33", acme)

			Convey("Then it is scored, persisted and synced", func() {
				So(err, ShouldBeNil)
				So(e.ID, ShouldEqual, "1")
				So(e.Error, ShouldEqual, 3)
				So(e.Points, ShouldEqual, 75)
				So(syncer.subs, ShouldHaveLength, 1)
				So(syncer.subs[0].TotalGuesses, ShouldEqual, 1)

				reloaded, err := NewSession(ctx, NewFileStorage(path))
				So(err, ShouldBeNil)
				So(reloaded.Scores(), ShouldResemble, s.Scores())
				So(reloaded.Aggregate(), ShouldResemble, s.Aggregate())
			})

			Convey("And the history is cleared", func() {
				So(s.Clear(ctx), ShouldBeNil)
				So(s.Sync(ctx), ShouldBeFalse)

				reloaded, _ := NewSession(ctx, NewFileStorage(path))
				So(reloaded.Scores(), ShouldBeEmpty)
			})
		})

		Convey("When the username changes", func() {
			name, err := s.SetUsername(ctx, "Christopher")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "Christophe")

			reloaded, _ := NewSession(ctx, NewFileStorage(path))
			So(reloaded.Username(), ShouldEqual, "Christophe")
		})
	})

	Convey("Given a session whose storage cannot save", t, func() {
		base := NewFileStorage(filepath.Join(t.TempDir(), "state.json"))
		s, err := NewSession(ctx, failingStorage{base})
		So(err, ShouldBeNil)

		Convey("Then the guess still counts and the failure is reported", func() {
			_, err := s.Guess(ctx, "30", acme)
			So(errors.Is(err, ErrPersist), ShouldBeTrue)
			So(s.Scores(), ShouldHaveLength, 1)
		})
	})
}
