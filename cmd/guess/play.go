package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/game"
	"github.com/okian/guessconv/internal/leadersync"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/spf13/cobra"
)

// Alert texts for rejected input.
const (
	msgInvalidNumber = "Please enter a valid number"
	msgOutOfRange    = "Please enter a value between 0 and 100"
)

func runPlay(cmd *cobra.Command, cfg *Config, rounds int) error {
	ctx := cmd.Context()
	companies, err := dataset.Companies()
	if err != nil {
		return err
	}
	picker, err := dataset.NewPicker(companies)
	if err != nil {
		return err
	}
	rt, err := open(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Playing as %s. Type s to skip a question or q to quit.\n", rt.session.Username())
	played, err := playLoop(ctx, cmd.InOrStdin(), out, rt.session, picker, rounds)

	rt.close()
	if played > 0 {
		_ = rt.syncer.FetchLeaderboard(context.WithoutCancel(ctx))
		printHistory(out, nil, rt.session.Aggregate())
		printLeaderboard(out, rt.syncer.View(), rt.session.Username())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// playLoop asks for guesses until the input ends, the player quits or
// rounds guesses were accepted. Skipped questions are not scored and do not
// count as rounds. It returns the number of accepted guesses.
func playLoop(ctx context.Context, in io.Reader, out io.Writer, s *game.Session, picker *dataset.Picker, rounds int) (int, error) {
	sc := bufio.NewScanner(in)
	played := 0
next:
	for rounds <= 0 || played < rounds {
		company := picker.Next(s.Scores())
		fmt.Fprintf(out, "\n%s - %s\n", company.Company, company.Funnel)
		if company.Description != "" {
			fmt.Fprintln(out, company.Description)
		}

		for {
			if err := ctx.Err(); err != nil {
				return played, err
			}
			fmt.Fprint(out, "Your guess (0-100, s to skip, q to quit): ")
			if !sc.Scan() {
				return played, sc.Err()
			}
			input := strings.TrimSpace(sc.Text())
			if strings.EqualFold(input, "q") || strings.EqualFold(input, "quit") {
				return played, nil
			}
			if strings.EqualFold(input, "s") || strings.EqualFold(input, "skip") {
				continue next
			}

			entry, err := s.Guess(ctx, input, company)
			switch {
			case errors.Is(err, model.ErrInvalidNumber):
				fmt.Fprintln(out, msgInvalidNumber)
				continue
			case errors.Is(err, model.ErrOutOfRange):
				fmt.Fprintln(out, msgOutOfRange)
				continue
			case err != nil:
				// the guess counts even when the save failed
				logger.Named("guess").Warn(ctx, "game not saved", logger.Error(err))
			}
			played++
			printResult(out, entry, s.Aggregate())
			break
		}
	}
	return played, nil
}

func printResult(out io.Writer, e model.ScoreEntry, agg game.Aggregate) {
	fmt.Fprintf(out, "Actual: %.1f%%. You were off by %.1f points.\n", float64(e.Actual), e.Error)
	fmt.Fprintf(out, "+%d points (%.0f%% accurate). Total: %d\n", e.Points, e.AccuracyPercentage, agg.TotalPoints)
}

func printHistory(out io.Writer, scores []model.ScoreEntry, agg game.Aggregate) {
	if agg.Count == 0 {
		fmt.Fprintln(out, "No guesses yet.")
		return
	}
	if len(scores) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCOMPANY\tFUNNEL\tGUESS\tACTUAL\tERROR\tPOINTS")
		for i, e := range scores {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%.1f\t%d\n",
				i+1, e.Product, e.Funnel, float64(e.Guess), float64(e.Actual), e.Error, e.Points)
		}
		_ = tw.Flush()
	}
	fmt.Fprintf(out, "\n%d guesses, %d points, average error %.2f, best %.2f, %.0f%% accuracy\n",
		agg.Count, agg.TotalPoints, agg.AverageError, agg.BestError, agg.AverageAccuracy)
}

func printLeaderboard(out io.Writer, v leadersync.View, me string) {
	fmt.Fprintln(out, "\nLeaderboard")
	if v.Err != nil {
		fmt.Fprintf(out, "Leaderboard unavailable: %v\n", v.Err)
	}
	if v.SyncErr != nil {
		fmt.Fprintf(out, "Last sync failed: %v\n", v.SyncErr)
	}
	if len(v.Entries) == 0 {
		if v.Err == nil {
			fmt.Fprintln(out, "No players yet.")
		}
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tAVG ERROR\tGUESSES\tPOINTS\tLEVEL")
	for i, e := range v.Entries {
		name := e.Username
		if name == me {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%d\t%s\n",
			i+1, name, e.AverageError, e.TotalGuesses, e.TotalPoints, e.PerformanceLevel)
	}
	_ = tw.Flush()
}
