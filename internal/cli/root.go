package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/scorelookup/internal/config"
	"github.com/rshade/scorelookup/internal/logging"
)

// session carries per-invocation state from the root command to its
// subcommands: the loaded configuration and the configured logger.
type session struct {
	lookupEnv func(string) (string, bool)
	cfg       *config.Config
	logger    zerolog.Logger
	logResult *logging.LogPathResult
}

// NewRootCmd creates the root Cobra command for the scorelookup CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithArgs(ver, os.LookupEnv)
}

// NewRootCmdWithArgs creates the root command with an explicit environment
// lookup for testability.
func NewRootCmdWithArgs(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	s := &session{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:           "scorelookup",
		Short:         "Resumable batch lookup of Sift scores",
		Long:          rootCmdLong,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(config.LoadOptions{Path: configPath, LookupEnv: s.lookupEnv})
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}
			s.cfg = cfg

			result := setupLogging(cmd, s)
			s.logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, s.logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $SCORELOOKUP_HOME/config.yaml)")
	cmd.AddCommand(newRunCmd(s), newStatusCmd(s), newConfigCmd(s))

	return cmd
}

const rootCmdLong = `scorelookup reads identifiers from an input CSV, looks up each one against
the Sift score API and appends "identifier,score" records to an output CSV.
Identifiers without a score are recorded as -1.

Progress lives in the output file itself: every run skips identifiers that
are already recorded, so an interrupted run resumes where it stopped.`

const rootCmdExample = `  # Look up the next batch (API key from the environment)
  SCORELOOKUP_API_KEY=... scorelookup run

  # Smaller batches with a pause between requests
  scorelookup run --max-batch 500 --delay 50ms

  # See how much work is left without calling the API
  scorelookup status

  # Show what the next run would do
  scorelookup run --dry-run

  # Initialize configuration
  scorelookup config init`

// newConfigCmd creates the config command group.
func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	cmd.AddCommand(newConfigInitCmd(s), newConfigValidateCmd(s), newConfigShowCmd(s))
	return cmd
}
