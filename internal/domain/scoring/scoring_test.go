package scoring

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPointsFor(t *testing.T) {
	Convey("Given error margins at and around every threshold", t, func() {
		cases := []struct {
			e    float64
			want int
		}{
			{0, 100}, {1, 100}, {1.0001, 75}, {3, 75}, {4, 50}, {5, 50},
			{5.5, 25}, {10, 25}, {12, 10}, {15, 10}, {17, 5}, {20, 5},
			{20.01, 1}, {50, 1}, {100, 1},
		}
		for _, c := range cases {
			So(PointsFor(c.e), ShouldEqual, c.want)
		}

		Convey("Then points never increase as the error grows", func() {
			prev := PointsFor(0)
			for e := 0.0; e <= 100; e += 0.25 {
				p := PointsFor(e)
				So(p, ShouldBeLessThanOrEqualTo, prev)
				prev = p
			}
		})

		Convey("Then NaN is awarded the minimum", func() {
			So(PointsFor(math.NaN()), ShouldEqual, MinPoints)
		})
	})
}

func TestScorerOptions(t *testing.T) {
	Convey("Given a scorer with a custom table", t, func() {
		s := New(
			WithThresholds([]Threshold{{MaxError: 10, Points: 5}, {MaxError: 2, Points: 50}}),
			WithMinPoints(0),
		)

		Convey("Then rows are applied in error order", func() {
			So(s.Points(1), ShouldEqual, 50)
			So(s.Points(7), ShouldEqual, 5)
			So(s.Points(11), ShouldEqual, 0)
		})

		Convey("Then the package table is untouched", func() {
			So(PointsFor(1), ShouldEqual, 100)
		})
	})
}

func TestAccuracyFor(t *testing.T) {
	Convey("Given error margins", t, func() {
		So(AccuracyFor(0), ShouldEqual, 100)
		So(AccuracyFor(12.5), ShouldEqual, 87.5)
		So(AccuracyFor(100), ShouldEqual, 0)
		So(AccuracyFor(150), ShouldEqual, 0)
		So(AccuracyFor(math.NaN()), ShouldEqual, 0)
	})
}

func TestPerformanceLevel(t *testing.T) {
	Convey("Given average errors", t, func() {
		So(PerformanceLevel(0), ShouldEqual, "Conversion Wizard")
		So(PerformanceLevel(5), ShouldEqual, "Conversion Wizard")
		So(PerformanceLevel(7), ShouldEqual, "Funnel Expert")
		So(PerformanceLevel(15), ShouldEqual, "Marketing Pro")
		So(PerformanceLevel(20), ShouldEqual, "Funnel Student")
		So(PerformanceLevel(20.5), ShouldEqual, "Funnel Novice")
	})
}
