package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"steam_reviews/internal/adapters/observability"
	"steam_reviews/internal/adapters/steam"
	"steam_reviews/internal/domain"
	"steam_reviews/internal/shared"
)

const version = "0.1.0"

const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// Global flags
var (
	flagBase    string
	flagRPS     int
	flagVerbose bool
)

// newClient builds the storefront client; tests replace it.
var newClient = func(base string, rps int) (domain.ReviewClient, error) {
	return steam.New(base, rps)
}

// Run executes the root command and returns an exit code.
func Run() int {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error
		var u usageError
		if errors.As(err, &u) {
			return ExitUsageError
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reviews",
		Short:        "Browse storefront reviews from the terminal",
		Long:         "reviews pages through a game's storefront reviews, revealing them one at a time or dumping raw pages.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := shared.Load()
			level := "warn"
			if flagVerbose {
				level = "debug"
			}
			// stdout carries the rendered output
			log.Logger = observability.NewLoggerWith(cfg.AppEnv, observability.LogOptions{Level: level, File: cfg.LogFile, Out: os.Stderr})
			if flagBase == "" {
				flagBase = cfg.SteamBase
			}
			if flagRPS <= 0 {
				flagRPS = cfg.SteamRPS
			}
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error { return usageError{err} })
	root.PersistentFlags().StringVar(&flagBase, "base", "", "Storefront base URL (default from STEAM_BASE_URL / APP_ENV)")
	root.PersistentFlags().IntVar(&flagRPS, "rps", 0, "Client-side request rate limit")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")

	root.AddCommand(newBrowseCmd())
	root.AddCommand(newPageCmd())
	root.AddCommand(versionCmd)
	return root
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print reviews version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reviews version %s\n", version)
	},
}

// usageError marks errors caused by bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// oneAppID accepts exactly one non-empty app id argument.
func oneAppID(cmd *cobra.Command, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return usageError{fmt.Errorf("expected exactly one app id, got %d arguments", len(args))}
	}
	return nil
}
