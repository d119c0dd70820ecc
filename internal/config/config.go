// Package config loads scorelookup settings from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
// A Config is built once per invocation and passed to the components that
// need it; nothing here is global.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/scorelookup/internal/engine/batch"
	"github.com/rshade/scorelookup/internal/sift"
)

// Defaults.
const (
	DefaultInput    = "input.csv"
	DefaultOutput   = "output.csv"
	DefaultMaxBatch = batch.DefaultMaxItems

	configDirName  = ".scorelookup"
	configFileName = "config.yaml"
)

// Configuration errors. Every validation failure wraps ErrInvalid.
var (
	ErrInvalid       = errors.New("invalid configuration")
	ErrMissingAPIKey = errors.New("API key is required (set SCORELOOKUP_API_KEY)")
)

// Config is the complete scorelookup configuration.
type Config struct {
	Input   string        `yaml:"input"`
	Output  string        `yaml:"output"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Logging LoggingConfig `yaml:"logging"`

	configPath string
}

// LookupConfig configures the score service and the pacing of a run.
type LookupConfig struct {
	// APIKey is normally supplied through the environment and is never
	// written by config init.
	APIKey     string        `yaml:"api_key,omitempty"`
	BaseURL    string        `yaml:"base_url"`
	APIVersion int           `yaml:"api_version"`
	AbuseType  string        `yaml:"abuse_type"`
	Timeout    time.Duration `yaml:"timeout"`

	RequestDelay time.Duration `yaml:"request_delay"`
	MaxBatch     int           `yaml:"max_batch"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// New returns a Config holding the defaults, pointing at the default config
// file location.
func New() *Config {
	return &Config{
		Input:  DefaultInput,
		Output: DefaultOutput,
		Lookup: LookupConfig{
			BaseURL:    sift.DefaultBaseURL,
			APIVersion: sift.DefaultAPIVersion,
			AbuseType:  sift.DefaultAbuseType,
			Timeout:    sift.DefaultTimeout,
			MaxBatch:   DefaultMaxBatch,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		configPath: DefaultConfigPath(os.LookupEnv),
	}
}

// DefaultHome returns $SCORELOOKUP_HOME, or ~/.scorelookup when unset.
func DefaultHome(lookupEnv func(string) (string, bool)) string {
	if home, ok := lookupEnv(EnvHome); ok && home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(userHome, configDirName)
}

// DefaultConfigPath returns the config file inside DefaultHome.
func DefaultConfigPath(lookupEnv func(string) (string, bool)) string {
	return filepath.Join(DefaultHome(lookupEnv), configFileName)
}

// ConfigPath returns the file this Config was loaded from or will be saved to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes where Save writes.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Input) == "" {
		errs = append(errs, errors.New("input path cannot be empty"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output path cannot be empty"))
	}
	if c.Lookup.MaxBatch < batch.MinMaxItems {
		errs = append(errs, fmt.Errorf("max_batch must be at least %d, got %d", batch.MinMaxItems, c.Lookup.MaxBatch))
	}
	if c.Lookup.RequestDelay < 0 {
		errs = append(errs, fmt.Errorf("request_delay cannot be negative, got %s", c.Lookup.RequestDelay))
	}
	if c.Lookup.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative, got %s", c.Lookup.Timeout))
	}
	if c.Lookup.APIVersion < 0 {
		errs = append(errs, fmt.Errorf("api_version cannot be negative, got %d", c.Lookup.APIVersion))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ValidateForLookup runs Validate and additionally requires an API key.
func (c *Config) ValidateForLookup() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Lookup.APIKey) == "" {
		return fmt.Errorf("%w: %w", ErrInvalid, ErrMissingAPIKey)
	}
	return nil
}

// SiftConfig builds the client configuration for the score service.
func (c *Config) SiftConfig(userAgent string) sift.Config {
	return sift.Config{
		APIKey:     c.Lookup.APIKey,
		BaseURL:    c.Lookup.BaseURL,
		APIVersion: c.Lookup.APIVersion,
		AbuseType:  c.Lookup.AbuseType,
		Timeout:    c.Lookup.Timeout,
		UserAgent:  userAgent,
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Lookup.APIKey != "" {
		out.Lookup.APIKey = "REDACTED"
	}
	return &out
}

// Save writes the configuration as YAML to ConfigPath, creating the parent
// directory when needed.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file; it must exist. Empty means the
	// default location, which may be absent.
	Path string

	// LookupEnv reads the environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from defaults, the config file and the environment.
// Command-line flags are applied by the caller afterwards.
func Load(opts LoadOptions) (*Config, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	cfg := New()
	cfg.configPath = DefaultConfigPath(lookupEnv)

	if opts.Path != "" {
		cfg.configPath = opts.Path
		if err := ShallowMergeYAML(cfg, opts.Path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	} else if _, err := os.Stat(cfg.configPath); err == nil {
		if err = ShallowMergeYAML(cfg, cfg.configPath); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
