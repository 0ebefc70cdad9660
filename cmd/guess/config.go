package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	envPrefix  = "GUESS_"
	defaultURL = "http://localhost:9080"
	stateFile  = "state.json"
)

var releaseVersion = "0.1.0"

// Config holds the persistent flags shared by every subcommand.
type Config struct {
	url     string
	state   string
	timeout time.Duration
	verbose bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid --url %q: must be an http(s) address", c.url)
	}
	if c.state == "" {
		return errors.New("--state must not be empty")
	}
	if c.timeout <= 0 {
		return fmt.Errorf("invalid --timeout (must be positive): %s", c.timeout)
	}
	return nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return stateFile
	}
	return filepath.Join(dir, "guessconv", stateFile)
}

func newCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "guess",
		Short:         "Guess the conversion rate of real company funnels.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindEnv(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return initLogger(cmd, cfg.verbose)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, cfg, 0)
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.url, "url", "u", defaultURL, "leaderboard server address (env: GUESS_URL)")
	fs.StringVar(&cfg.state, "state", defaultStatePath(), "file the game is saved to (env: GUESS_STATE)")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "timeout for each leaderboard request (env: GUESS_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug logs (env: GUESS_VERBOSE)")

	cmd.AddCommand(
		newPlayCmd(cfg),
		newLeaderboardCmd(cfg),
		newUsernameCmd(cfg),
		newHistoryCmd(cfg),
		newClearCmd(cfg),
		newSimulateCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guess v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// bindEnv fills flags the user did not set from GUESS_* variables.
func bindEnv(fs *pflag.FlagSet) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !k.Exists(f.Name) {
			return
		}
		if err := fs.Set(f.Name, k.String(f.Name)); err != nil {
			name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
		}
	})
	return errors.Join(errs...)
}

func initLogger(cmd *cobra.Command, verbose bool) error {
	if err := logger.InitWith(cmd.ErrOrStderr(), logger.FormatConsole); err != nil {
		return err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}
