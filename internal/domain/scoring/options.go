package scoring

import "sort"

// Option applies a configuration option to a Scorer.
type Option func(*Scorer)

// WithThresholds replaces the points table. Rows are sorted by MaxError;
// an empty table is ignored.
func WithThresholds(table []Threshold) Option {
	return func(s *Scorer) {
		if len(table) == 0 {
			return
		}
		t := append([]Threshold(nil), table...)
		sort.Slice(t, func(i, j int) bool { return t[i].MaxError < t[j].MaxError })
		s.thresholds = t
	}
}

// WithMinPoints sets the fallback award.
func WithMinPoints(p int) Option {
	return func(s *Scorer) {
		if p >= 0 {
			s.minPoints = p
		}
	}
}
