package dataset

import (
	"errors"
	"testing"

	"github.com/okian/guessconv/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompanies(t *testing.T) {
	Convey("Given the embedded dataset", t, func() {
		cs, err := Companies()

		Convey("Then it parses and every value is a valid percent", func() {
			So(err, ShouldBeNil)
			So(len(cs), ShouldBeGreaterThan, DefaultRecentWindow+1)
			for _, c := range cs {
				So(c.Conversion.Valid(), ShouldBeTrue)
			}
		})
	})

	Convey("Given malformed datasets", t, func() {
		_, err := Parse([]byte(`not json`))
		So(errors.Is(err, ErrInvalidDataset), ShouldBeTrue)
		_, err = Parse([]byte(`[]`))
		So(errors.Is(err, ErrInvalidDataset), ShouldBeTrue)
		_, err = Parse([]byte(`[{"company":"A","funnel":"f","conversion":140}]`))
		So(errors.Is(err, ErrInvalidDataset), ShouldBeTrue)
	})
}

// sequence returns the given indexes in order, then repeats the last one.
func sequence(idx ...int) func(int) int {
	i := 0
	return func(int) int {
		v := idx[min(i, len(idx)-1)]
		i++
		return v
	}
}

func played(products ...string) []model.ScoreEntry {
	out := make([]model.ScoreEntry, 0, len(products))
	for _, p := range products {
		out = append(out, model.ScoreEntry{Product: p})
	}
	return out
}

func TestPicker(t *testing.T) {
	cs := []Company{
		{Company: "A", Funnel: "f", Conversion: 1},
		{Company: "B", Funnel: "f", Conversion: 2},
		{Company: "C", Funnel: "f", Conversion: 3},
		{Company: "D", Funnel: "f", Conversion: 4},
	}

	Convey("Given a picker", t, func() {
		Convey("When the first draw was played recently", func() {
			p, err := NewPicker(cs, WithRecentWindow(2), WithRand(sequence(0, 0, 2)))
			So(err, ShouldBeNil)

			Convey("Then it redraws until a fresh company comes up", func() {
				So(p.Next(played("A", "B")).Company, ShouldEqual, "C")
			})
		})

		Convey("When only products older than the window repeat", func() {
			p, _ := NewPicker(cs, WithRecentWindow(1), WithRand(sequence(0)))

			Convey("Then they are allowed", func() {
				So(p.Next(played("A", "B")).Company, ShouldEqual, "A")
			})
		})

		Convey("When every draw is recent", func() {
			calls := 0
			p, _ := NewPicker(cs, WithRecentWindow(2), WithMaxAttempts(3), WithRand(func(int) int { calls++; return 0 }))

			Convey("Then it gives up after maxAttempts and repeats", func() {
				So(p.Next(played("A", "B")).Company, ShouldEqual, "A")
				So(calls, ShouldEqual, 3)
			})
		})

		Convey("When the recent list covers nearly the whole dataset", func() {
			p, _ := NewPicker(cs, WithRand(sequence(0, 1)))

			Convey("Then the first draw is accepted", func() {
				So(p.Next(played("A", "B", "C")).Company, ShouldEqual, "A")
			})
		})

		Convey("When the dataset is empty", func() {
			_, err := NewPicker(nil)
			So(errors.Is(err, ErrEmptyDataset), ShouldBeTrue)
		})
	})
}
