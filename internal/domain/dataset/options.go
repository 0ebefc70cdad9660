package dataset

// Option applies a configuration option to a Picker.
type Option func(*Picker)

// WithRecentWindow sets how many of the latest products are avoided.
func WithRecentWindow(n int) Option {
	return func(p *Picker) {
		if n >= 0 {
			p.window = n
		}
	}
}

// WithMaxAttempts bounds the number of draws per pick.
func WithMaxAttempts(n int) Option {
	return func(p *Picker) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithRand replaces the random source; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(p *Picker) {
		if intn != nil {
			p.intn = intn
		}
	}
}
