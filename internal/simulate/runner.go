package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const runIDAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Client is the part of the leaderboard API a simulation needs.
type Client interface {
	Submitter
	Fetch(ctx context.Context) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, username string) (int, model.LeaderboardEntry, error)
}

// Run plays cfg.Players concurrent games of cfg.Rounds guesses each, pushing
// every aggregate, then verifies the server's view.
func Run(ctx context.Context, cfg Config, c Client, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	stats := &Stats{StartTime: time.Now(), Players: cfg.Players}

	log.Info(ctx, "starting simulation",
		logger.Int("players", cfg.Players),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.String("order", cfg.Order))

	// Step 1: make sure the server answers
	if _, err := c.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("leaderboard unavailable: %w", err)
	}

	companies, err := dataset.Companies()
	if err != nil {
		return nil, err
	}
	runID, err := gonanoid.Generate(runIDAlphabet, 3)
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	// Step 2: play
	finals, err := playAll(ctx, cfg, c, companies, runID, seed, stats, log)
	if err != nil {
		return stats, err
	}

	// Step 3: verify
	if err := verify(ctx, cfg, c, finals, stats, log); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

func playAll(ctx context.Context, cfg Config, c Client, companies []dataset.Company, runID string, seed uint64, stats *Stats, log logger.Logger) (map[string]model.Submission, error) {
	var (
		mu     sync.Mutex
		finals = make(map[string]model.Submission, cfg.Players)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i := 0; i < cfg.Players; i++ {
		name := fmt.Sprintf("%s%04d", runID, i)
		p, err := newPlayer(name, seed+uint64(i), companies)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			var last model.Submission
			pushed := false
			for r := 0; r < cfg.Rounds; r++ {
				sub, err := p.play()
				if err != nil {
					return err
				}
				rctx, cancel := context.WithTimeout(gctx, cfg.Timeout)
				_, err = c.Submit(rctx, sub)
				cancel()

				mu.Lock()
				stats.Guesses++
				stats.Submitted++
				if err != nil {
					stats.Failed++
				} else {
					stats.Successful++
					last, pushed = sub, true
				}
				mu.Unlock()

				if err != nil {
					log.Warn(gctx, "submission failed", logger.String("player", name), logger.Error(err))
					if errors.Is(err, context.Canceled) {
						return err
					}
				} else if cfg.Verbose {
					log.Debug(gctx, "submitted", logger.String("player", name), logger.Float64("averageError", sub.AverageError))
				}
			}
			if pushed {
				mu.Lock()
				finals[name] = last
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return finals, nil
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * 100
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("guesses", stats.Guesses),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("rankMismatches", stats.RankMismatches),
		logger.Int("leaderboardRows", stats.LeaderboardRows),
		logger.Bool("sorted", stats.LeaderboardSorted),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
