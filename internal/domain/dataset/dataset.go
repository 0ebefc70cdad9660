// Package dataset holds the static list of companies players guess about and
// picks questions from it.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/okian/guessconv/internal/domain/model"
)

// Picker defaults.
const (
	DefaultRecentWindow = 5
	DefaultMaxAttempts  = 10
)

// Company is one question: guess Conversion for Funnel at Company.
type Company struct {
	Company     string        `json:"company"`
	Funnel      string        `json:"funnel"`
	Conversion  model.Percent `json:"conversion"`
	Description string        `json:"description,omitempty"`
	Logo        string        `json:"logo,omitempty"`
}

//go:embed data/companies.json
var companiesJSON []byte

var (
	loadOnce  sync.Once
	companies []Company
	loadErr   error
)

// Companies returns the embedded dataset. It is parsed once.
func Companies() ([]Company, error) {
	loadOnce.Do(func() {
		companies, loadErr = Parse(companiesJSON)
	})
	return companies, loadErr
}

// Parse decodes and validates a company list.
func Parse(b []byte) ([]Company, error) {
	var out []Company
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no companies", ErrInvalidDataset)
	}
	for i, c := range out {
		if c.Company == "" || c.Funnel == "" || !c.Conversion.Valid() {
			return nil, fmt.Errorf("%w: entry %d (%q)", ErrInvalidDataset, i, c.Company)
		}
	}
	return out, nil
}

// Picker selects random companies while avoiding recently played products.
type Picker struct {
	companies   []Company
	window      int
	maxAttempts int
	intn        func(n int) int
}

// NewPicker returns a picker over companies.
func NewPicker(companies []Company, opts ...Option) (*Picker, error) {
	if len(companies) == 0 {
		return nil, ErrEmptyDataset
	}
	p := &Picker{
		companies:   companies,
		window:      DefaultRecentWindow,
		maxAttempts: DefaultMaxAttempts,
		intn:        rand.IntN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Next returns a company not among the last window products of history when
// one can be found within maxAttempts draws. Otherwise the last draw is
// returned, so a repeat is possible but never a failure.
func (p *Picker) Next(history []model.ScoreEntry) Company {
	recent := make([]string, 0, p.window)
	start := max(0, len(history)-p.window)
	for _, e := range history[start:] {
		recent = append(recent, e.Product)
	}

	var c Company
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		c = p.companies[p.intn(len(p.companies))]
		if !slices.Contains(recent, c.Company) || len(recent) >= len(p.companies)-1 {
			break
		}
	}
	return c
}
