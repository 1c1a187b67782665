// Package cmd implements the strava-wrapped command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/config"
	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/strava"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable Strava session; run login.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	configPath string
	envFile    string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strava-wrapped",
	Short: "Your year on Strava, in the terminal",
	Long: `strava-wrapped signs in to Strava, pulls your activity history and
turns it into totals, records, race predictions, a shareable card and a
roast. It can also run a small local server that relays API reads with
your stored session.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits with a code describing the failure
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "strava-wrapped version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// AuthFailedError marks a failed sign-in flow
type AuthFailedError struct {
	Err error
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("sign-in failed: %v", e.Err)
}

func (e *AuthFailedError) Unwrap() error {
	return e.Err
}

// getExitCode determines the exit code for err
func getExitCode(err error) int {
	var authFailed *AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	if errors.Is(err, auth.ErrUnauthenticated) || strava.IsKind(err, strava.KindUnauthorized) {
		return ExitCodeAuthRequired
	}

	return ExitCodeError
}

// setup loads .env and initializes logging before any command runs
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	if level == "" {
		level = config.DefaultConfig().Log.Level
	}
	logging.Init(logging.ParseLevel(level), cmd.ErrOrStderr())
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is ~/.strava-wrapped/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file with STRAVA_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRoastCmd())
	rootCmd.AddCommand(newCardCmd())
	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newServeCmd())
}
