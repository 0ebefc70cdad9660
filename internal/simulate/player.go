package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/game"
)

// Submitter pushes a player's aggregate.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) ([]model.LeaderboardEntry, error)
}

// player guesses with gaussian noise; spread is the standard deviation in
// percentage points, so smaller is better.
type player struct {
	name   string
	spread float64
	rng    *rand.Rand
	state  *game.State
	picker *dataset.Picker
}

func newPlayer(name string, seed uint64, companies []dataset.Company) (*player, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	picker, err := dataset.NewPicker(companies, dataset.WithRand(rng.IntN))
	if err != nil {
		return nil, err
	}
	st := game.NewState()
	st.SetUsername(name)
	return &player{
		name:   name,
		spread: 0.5 + rng.Float64()*25,
		rng:    rng,
		state:  st,
		picker: picker,
	}, nil
}

// guess produces the raw text a human would type for company.
func (p *player) guess(company dataset.Company) string {
	g := float64(company.Conversion) + p.rng.NormFloat64()*p.spread
	g = math.Max(0, math.Min(100, g))
	return strconv.FormatFloat(math.Round(g*10)/10, 'f', 1, 64)
}

// play runs one round and returns the submission to push.
func (p *player) play() (model.Submission, error) {
	company := p.picker.Next(p.state.Scores())
	value, err := model.ParseGuess(p.guess(company))
	if err != nil {
		return model.Submission{}, err
	}
	entry, err := model.NewScoreEntry(fmt.Sprintf("%s-%d", p.name, len(p.state.Scores())), company.Company, company.Funnel, value, company.Conversion)
	if err != nil {
		return model.Submission{}, err
	}
	if _, err := p.state.AddScore(entry); err != nil {
		return model.Submission{}, err
	}
	sub, _ := p.state.Submission()
	return sub, nil
}
