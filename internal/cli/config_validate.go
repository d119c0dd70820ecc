package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/scorelookup/internal/config"
)

// newConfigValidateCmd creates the config validate command for validating configuration.
func newConfigValidateCmd(s *session) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the configuration obtained from the config file and the
environment: paths must be set, max_batch must be at least 1 and durations
must not be negative. A missing API key is reported as a warning because
only the run command needs it.`,
		Example: `  # Validate current configuration
  scorelookup config validate

  # Validate and show detailed information
  scorelookup config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, s.cfg, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, cfg *config.Config, verbose bool) error {
	if err := cfg.Validate(); err != nil {
		return classify(fmt.Errorf("configuration validation failed: %w", err))
	}

	if err := cfg.ValidateForLookup(); err != nil {
		cmd.PrintErrf("Warning: %v\n", err)
	}
	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.ConfigPath())
	cmd.Printf("  Input: %s\n", cfg.Input)
	cmd.Printf("  Output: %s\n", cfg.Output)
	cmd.Printf("  Max batch: %s\n", formatCount(cfg.Lookup.MaxBatch))
	cmd.Printf("  Request delay: %s\n", cfg.Lookup.RequestDelay)
	cmd.Printf("  Score API: %s (v%d, abuse type %s, timeout %s)\n",
		cfg.Lookup.BaseURL, cfg.Lookup.APIVersion, cfg.Lookup.AbuseType, cfg.Lookup.Timeout)
	cmd.Printf("  API key set: %t\n", cfg.Lookup.APIKey != "")
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
}
