package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvHome         = "SCORELOOKUP_HOME"
	EnvAPIKey       = "SCORELOOKUP_API_KEY"
	EnvLegacyAPIKey = "API_KEY"
	EnvInput        = "SCORELOOKUP_INPUT"
	EnvOutput       = "SCORELOOKUP_OUTPUT"
	EnvRequestDelay = "SCORELOOKUP_REQUEST_DELAY"
	EnvMaxBatch     = "SCORELOOKUP_MAX_BATCH"
	EnvLogLevel     = "SCORELOOKUP_LOG_LEVEL"
	EnvLogFormat    = "SCORELOOKUP_LOG_FORMAT"
)

// ApplyEnv overrides settings from the environment. SCORELOOKUP_API_KEY
// wins over the legacy API_KEY.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get(EnvLegacyAPIKey); ok {
		c.Lookup.APIKey = v
	}
	if v, ok := get(EnvAPIKey); ok {
		c.Lookup.APIKey = v
	}
	if v, ok := get(EnvInput); ok {
		c.Input = v
	}
	if v, ok := get(EnvOutput); ok {
		c.Output = v
	}
	if v, ok := get(EnvRequestDelay); ok {
		d, err := ParseDelay(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvRequestDelay, err)
		}
		c.Lookup.RequestDelay = d
	}
	if v, ok := get(EnvMaxBatch); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvMaxBatch, err)
		}
		c.Lookup.MaxBatch = n
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	return nil
}

// ParseDelay accepts a Go duration ("50ms", "1.5s") or a bare number of
// seconds ("0.05").
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: want a duration like 50ms or seconds like 0.05", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
