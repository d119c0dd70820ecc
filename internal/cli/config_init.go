package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/scorelookup/internal/config"
)

// newConfigInitCmd creates the config init command for initializing configuration.
// The API key is never written; supply it through SCORELOOKUP_API_KEY.
func newConfigInitCmd(s *session) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at
$SCORELOOKUP_HOME/config.yaml (default ~/.scorelookup/config.yaml), or at the
path given with --config.

The API key is not written to the file; set SCORELOOKUP_API_KEY instead.`,
		Example: `  # Create the default configuration
  scorelookup config init

  # Create configuration, overwriting existing
  scorelookup config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, s.cfg.ConfigPath(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

// initConfig writes the default configuration to configPath.
func initConfig(cmd *cobra.Command, configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", configPath, err)
		}
	}

	cfg := config.New()
	cfg.SetConfigPath(configPath)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", configPath)

	return nil
}
