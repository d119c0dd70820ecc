package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/scorelookup/internal/cli"
)

func TestConfigInit(t *testing.T) {
	h := newHarness(t, "")
	h.env["SCORELOOKUP_HOME"] = filepath.Join(t.TempDir(), "fresh")
	configPath := filepath.Join(h.env["SCORELOOKUP_HOME"], "config.yaml")

	stdout, _, err := h.execute("config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration initialized successfully")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_batch: 10000")
	assert.NotContains(t, string(data), "test-key", "the API key is never written")

	_, _, err = h.execute("config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = h.execute("config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		h := newHarness(t, "")
		stdout, _, err := h.execute("config", "validate", "--verbose")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Configuration is valid")
		assert.Contains(t, stdout, "API key set: true")
	})

	t.Run("missing api key warns", func(t *testing.T) {
		h := newHarness(t, "")
		delete(h.env, "SCORELOOKUP_API_KEY")
		_, stderr, err := h.execute("config", "validate")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Warning:")
	})

	t.Run("invalid max batch", func(t *testing.T) {
		h := newHarness(t, "")
		h.env["SCORELOOKUP_MAX_BATCH"] = "0"
		_, _, err := h.execute("config", "validate")
		requireExitCode(t, err, cli.ExitConfig)
	})
}

func TestConfigShow_RedactsAPIKey(t *testing.T) {
	h := newHarness(t, "")

	stdout, _, err := h.execute("config", "show")

	require.NoError(t, err)
	assert.Contains(t, stdout, "api_key: REDACTED")
	assert.NotContains(t, stdout, "test-key")
	assert.Contains(t, stdout, "input: "+h.input)
}
