package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/guessconv/internal/adapters/client"
	"github.com/okian/guessconv/internal/game"
	"github.com/okian/guessconv/internal/leadersync"
	"github.com/okian/guessconv/internal/simulate"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/spf13/cobra"
)

// clientEnv is everything a subcommand may need.
type clientEnv struct {
	log     logger.Logger
	client  *client.Client
	syncer  *leadersync.Syncer
	session *game.Session
}

func open(ctx context.Context, cfg *Config) (*clientEnv, error) {
	log := logger.Named("guess")
	c, err := client.New(cfg.url,
		client.WithTimeout(cfg.timeout),
		client.WithLogger(log.Named("client")),
		client.WithUserAgent("guess/"+releaseVersion))
	if err != nil {
		return nil, err
	}
	syncer := leadersync.New(c,
		leadersync.WithLogger(log.Named("sync")),
		leadersync.WithShutdownTimeout(2*cfg.timeout))
	session, err := game.NewSession(ctx, game.NewFileStorage(cfg.state),
		game.WithSyncer(syncer),
		game.WithLogger(log.Named("game")))
	if err != nil {
		return nil, fmt.Errorf("load game from %s: %w", cfg.state, err)
	}
	syncer.Start(ctx)
	return &clientEnv{log: log, client: c, syncer: syncer, session: session}, nil
}

// close waits, up to the syncer's shutdown timeout, for queued pushes.
func (r *clientEnv) close() {
	if err := r.syncer.Close(context.Background()); err != nil {
		r.log.Warn(context.Background(), "pending leaderboard updates dropped", logger.Error(err))
	}
}

func newPlayCmd(cfg *Config) *cobra.Command {
	var rounds int
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play rounds until you quit (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, cfg, rounds)
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "n", 0, "stop after this many guesses, 0 for no limit")
	return cmd
}

func newLeaderboardCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show the global leaderboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			_ = rt.syncer.FetchLeaderboard(cmd.Context())
			out := cmd.OutOrStdout()
			printLeaderboard(out, rt.syncer.View(), rt.session.Username())

			if len(rt.session.Scores()) == 0 {
				return nil
			}
			rank, entry, err := rt.client.Rank(cmd.Context(), rt.session.Username())
			switch {
			case errors.Is(err, client.ErrNotFound):
				fmt.Fprintln(out, "You are not on the leaderboard yet.")
			case err != nil:
				rt.log.Debug(cmd.Context(), "rank lookup failed", logger.Error(err))
			default:
				fmt.Fprintf(out, "You are #%d with an average error of %.2f.\n", rank, entry.AverageError)
			}
			return nil
		},
	}
}

func newUsernameCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "username [name]",
		Short: "Show or change your leaderboard name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, rt.session.Username())
				return nil
			}
			name, err := rt.session.SetUsername(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Playing as %s.\n", name)
			// push the existing aggregate under the new name
			rt.session.Sync(cmd.Context())
			return nil
		},
	}
}

func newHistoryCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your past guesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close()
			printHistory(cmd.OutOrStdout(), rt.session.Scores(), rt.session.Aggregate())
			return nil
		},
	}
}

func newClearCmd(cfg *Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete your guess history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("clearing history cannot be undone, pass --yes to confirm")
			}
			rt, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := rt.session.Clear(cmd.Context()); err != nil {
				return err
			}
			rt.syncer.ResetLeaderboard()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func newSimulateCmd(cfg *Config) *cobra.Command {
	sc := simulate.Config{}
	cmd := &cobra.Command{
		Use:    "simulate",
		Short:  "Play many concurrent games against the server and verify the leaderboard",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc.Timeout = cfg.timeout
			sc.Verbose = cfg.verbose
			log := logger.Named("simulate")
			c, err := client.New(cfg.url, client.WithTimeout(cfg.timeout), client.WithLogger(log.Named("client")))
			if err != nil {
				return err
			}
			stats, err := simulate.Run(cmd.Context(), sc, c, log)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%d players, %d guesses, %d failed, %d rank mismatches in %s\n",
					stats.Players, stats.Guesses, stats.Failed, stats.RankMismatches, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&sc.Players, "players", simulate.DefaultPlayers, "simulated players")
	fs.IntVar(&sc.Rounds, "rounds", simulate.DefaultRounds, "guesses per player")
	fs.IntVar(&sc.Workers, "workers", simulate.DefaultWorkers, "players playing at once")
	fs.StringVar(&sc.Order, "order", "average_error", "ranking the server uses: average_error or total_points")
	fs.Uint64Var(&sc.Seed, "seed", 0, "random seed, 0 for a random one")
	return cmd
}
