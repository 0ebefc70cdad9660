// Package scoring turns guess errors into points, accuracy and a performance label.
package scoring

import "math"

// Threshold awards Points when the error margin is at most MaxError.
type Threshold struct {
	MaxError float64
	Points   int
}

// Thresholds is the ordered points table. The first matching row wins.
var Thresholds = []Threshold{ //nolint:gochecknoglobals // fixed scoring table
	{MaxError: 1, Points: 100},
	{MaxError: 3, Points: 75},
	{MaxError: 5, Points: 50},
	{MaxError: 10, Points: 25},
	{MaxError: 15, Points: 10},
	{MaxError: 20, Points: 5},
}

// MinPoints is awarded when no threshold matches.
const MinPoints = 1

// Level is a named performance band keyed by the maximum average error.
type Level struct {
	MaxAverageError float64
	Name            string
}

// Levels is the ordered performance table.
var Levels = []Level{ //nolint:gochecknoglobals // fixed label table
	{MaxAverageError: 5, Name: "Conversion Wizard"},
	{MaxAverageError: 10, Name: "Funnel Expert"},
	{MaxAverageError: 15, Name: "Marketing Pro"},
	{MaxAverageError: 20, Name: "Funnel Student"},
}

// LowestLevel is used when the average error exceeds every band.
const LowestLevel = "Funnel Novice"

// Scorer evaluates errors against a points table. The zero value is not
// usable; use New.
type Scorer struct {
	thresholds []Threshold
	minPoints  int
}

// New returns a Scorer using the default table unless overridden.
func New(opts ...Option) *Scorer {
	s := &Scorer{thresholds: Thresholds, minPoints: MinPoints}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Points maps an absolute error to points. NaN earns the minimum.
func (s *Scorer) Points(errorMargin float64) int {
	for _, t := range s.thresholds {
		if errorMargin <= t.MaxError {
			return t.Points
		}
	}
	return s.minPoints
}

var defaultScorer = New() //nolint:gochecknoglobals // stateless default

// PointsFor maps an absolute error in percentage points to points using Thresholds.
func PointsFor(errorMargin float64) int {
	return defaultScorer.Points(errorMargin)
}

// AccuracyFor returns max(0, 100 - errorMargin).
func AccuracyFor(errorMargin float64) float64 {
	if math.IsNaN(errorMargin) {
		return 0
	}
	return math.Max(0, 100-errorMargin)
}

// PerformanceLevel labels a player by average error.
func PerformanceLevel(averageError float64) string {
	for _, l := range Levels {
		if averageError <= l.MaxAverageError {
			return l.Name
		}
	}
	return LowestLevel
}
