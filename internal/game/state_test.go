package game

import (
	"errors"
	"testing"

	"github.com/okian/guessconv/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func mustEntry(id string, guess, actual model.Percent) model.ScoreEntry {
	e, err := model.NewScoreEntry(id, "Acme "+id, "Trial to paid", guess, actual)
	if err != nil {
		panic(err)
	}
	return e
}

func TestStateAddScore(t *testing.T) {
	Convey("Given a fresh state", t, func() {
		s := NewState()
		So(s.Username(), ShouldEqual, "Anonymous")
		So(s.Aggregate(), ShouldResemble, Aggregate{})
		_, ok := s.Submission()
		So(ok, ShouldBeFalse)

		Convey("When a perfect guess is added", func() {
			got, err := s.AddScore(mustEntry("1", 40, 40))
			So(err, ShouldBeNil)

			Convey("Then it earns 100 points and 100 accuracy", func() {
				So(got.Points, ShouldEqual, 100)
				So(got.AccuracyPercentage, ShouldEqual, 100)
				So(s.TotalPoints(), ShouldEqual, 100)
				So(s.Aggregate().LastPoints, ShouldEqual, 100)
			})
		})

		Convey("When an entry carries an error that disagrees with its values", func() {
			got, err := s.AddScore(model.ScoreEntry{ID: "x", Guess: 10, Actual: 50, Error: 0})

			Convey("Then the error is recomputed before scoring", func() {
				So(err, ShouldBeNil)
				So(got.Error, ShouldEqual, 40)
				So(got.Points, ShouldEqual, 1)
				So(s.Scores()[0].Error, ShouldEqual, 40)
			})
		})

		Convey("When an entry is out of range", func() {
			_, err := s.AddScore(model.ScoreEntry{ID: "x", Guess: 500, Actual: -3})

			Convey("Then it is refused and nothing changes", func() {
				So(errors.Is(err, model.ErrOutOfRange), ShouldBeTrue)
				So(s.Scores(), ShouldBeEmpty)
				So(s.TotalPoints(), ShouldEqual, 0)
			})
		})

		Convey("When several guesses are added", func() {
			s.AddScore(mustEntry("1", 40, 42)) // e=2 -> 75
			s.AddScore(mustEntry("2", 10, 20)) // e=10 -> 25
			s.AddScore(mustEntry("3", 90, 60)) // e=30 -> 1
			agg := s.Aggregate()

			Convey("Then the aggregate is a function of the sequence", func() {
				So(agg.Count, ShouldEqual, 3)
				So(agg.TotalPoints, ShouldEqual, 101)
				So(agg.TotalPoints, ShouldEqual, s.TotalPoints())
				So(agg.AverageError, ShouldEqual, 14)
				So(agg.BestError, ShouldEqual, 2)
				So(agg.AverageAccuracy, ShouldEqual, 86)
				So(agg.LastPoints, ShouldEqual, 1)
			})

			Convey("Then the submission carries the derived values", func() {
				sub, ok := s.Submission()
				So(ok, ShouldBeTrue)
				So(sub.TotalGuesses, ShouldEqual, 3)
				So(sub.AverageError, ShouldEqual, 14)
				So(sub.BestError, ShouldEqual, 2)
				So(sub.PerformanceLevel, ShouldEqual, "Marketing Pro")
				So(sub.TotalPoints, ShouldEqual, 101)
				So(sub.IdempotencyKey, ShouldEqual, "Anonymous:"+s.Epoch()+":3")
			})
		})
	})
}

func TestStateClearAndRename(t *testing.T) {
	Convey("Given a state with history", t, func() {
		s := NewState()
		s.AddScore(mustEntry("1", 40, 45))
		epoch := s.Epoch()

		Convey("When cleared", func() {
			s.ClearScores()

			Convey("Then every counter resets and the epoch rotates", func() {
				So(s.Scores(), ShouldBeEmpty)
				So(s.TotalPoints(), ShouldEqual, 0)
				So(s.Aggregate(), ShouldResemble, Aggregate{})
				So(s.Snapshot().AverageAccuracy, ShouldEqual, 0)
				So(s.Snapshot().LastPoints, ShouldEqual, 0)
				So(s.Epoch(), ShouldNotEqual, epoch)
			})
		})

		Convey("When renamed with a long name", func() {
			s.SetUsername("averyveryverylongname")
			So(s.Username(), ShouldEqual, "averyveryv")
		})

		Convey("When renamed with a blank name", func() {
			s.SetUsername("   ")
			So(s.Username(), ShouldEqual, "Anonymous")
		})
	})
}

func TestRestore(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		s := NewState()
		s.SetUsername("ana")
		s.AddScore(mustEntry("1", 40, 41))
		s.AddScore(mustEntry("2", 40, 48))
		snap := s.Snapshot()

		Convey("When it round trips", func() {
			r, drift := Restore(snap)

			Convey("Then the state is identical", func() {
				So(drift, ShouldBeFalse)
				So(r.Snapshot(), ShouldResemble, snap)
				So(r.Aggregate(), ShouldResemble, s.Aggregate())
			})
		})

		Convey("When the running total was edited", func() {
			snap.TotalPoints = 9999
			r, drift := Restore(snap)

			Convey("Then the sum of entries wins", func() {
				So(drift, ShouldBeTrue)
				So(r.TotalPoints(), ShouldEqual, 125)
			})
		})

		Convey("When a stored error was edited", func() {
			snap.Scores[1].Error = 0
			snap.Scores[1].Points = 100
			snap.TotalPoints = 200
			r, drift := Restore(snap)

			Convey("Then the entry is rescored from its values", func() {
				So(drift, ShouldBeTrue)
				So(r.Scores()[1].Error, ShouldEqual, 8)
				So(r.Scores()[1].Points, ShouldEqual, 25)
				So(r.Aggregate().AverageError, ShouldEqual, 4.5)
				So(r.TotalPoints(), ShouldEqual, 125)
				sub, _ := r.Submission()
				So(sub.AverageError, ShouldEqual, 4.5)
			})
		})

		Convey("When a stored entry is out of range", func() {
			snap.Scores = append(snap.Scores, model.ScoreEntry{ID: "3", Guess: 500, Actual: -3, Error: 503})
			r, drift := Restore(snap)

			Convey("Then it is dropped", func() {
				So(drift, ShouldBeTrue)
				So(r.Scores(), ShouldHaveLength, 2)
				So(r.Aggregate().AverageError, ShouldEqual, 4.5)
			})
		})

		Convey("When fields are missing", func() {
			r, _ := Restore(Snapshot{})
			So(r.Username(), ShouldEqual, "Anonymous")
			So(r.Epoch(), ShouldNotBeEmpty)
		})
	})
}
