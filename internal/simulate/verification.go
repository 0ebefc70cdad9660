package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/logger"
)

// ErrInconsistent is returned when the server's board disagrees with what was played.
var ErrInconsistent = errors.New("leaderboard inconsistent")

const epsilon = 1e-9

// verify checks that the board is sorted and that every player's row
// carries its final aggregate.
func verify(ctx context.Context, cfg Config, c Client, finals map[string]model.Submission, stats *Stats, log logger.Logger) error {
	board, err := c.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	stats.LeaderboardRows = len(board)
	stats.LeaderboardSorted = sorted(board, cfg.Order)
	if !stats.LeaderboardSorted {
		log.Warn(ctx, "leaderboard not sorted", logger.String("order", cfg.Order))
	}

	for name, want := range finals {
		rctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, got, err := c.Rank(rctx, name)
		cancel()
		stats.RanksChecked++
		if err != nil {
			stats.RankMismatches++
			log.Warn(ctx, "rank lookup failed", logger.String("player", name), logger.Error(err))
			continue
		}
		if got.TotalGuesses != want.TotalGuesses || math.Abs(got.AverageError-want.AverageError) > epsilon {
			stats.RankMismatches++
			log.Warn(ctx, "row does not match final aggregate",
				logger.String("player", name),
				logger.Int("wantGuesses", want.TotalGuesses),
				logger.Int("gotGuesses", got.TotalGuesses))
		}
	}

	if !stats.LeaderboardSorted || stats.RankMismatches > 0 {
		return fmt.Errorf("%w: sorted=%t mismatches=%d", ErrInconsistent, stats.LeaderboardSorted, stats.RankMismatches)
	}
	return nil
}

// sorted reports whether board follows order, average_error ascending unless
// order is total_points.
func sorted(board []model.LeaderboardEntry, order string) bool {
	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		if order == "total_points" {
			if cur.TotalPoints > prev.TotalPoints {
				return false
			}
			continue
		}
		if cur.AverageError < prev.AverageError {
			return false
		}
	}
	return true
}
