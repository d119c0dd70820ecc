package cli_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/scorelookup/internal/cli"
)

// siftResponse is a canned score API reply.
type siftResponse struct {
	httpStatus int
	body       string
}

func scored(score float64) siftResponse {
	return siftResponse{http.StatusOK, fmt.Sprintf(`{"status":0,"error_message":"OK","score":%v}`, score)}
}

func unscored() siftResponse {
	return siftResponse{http.StatusNotFound, `{"status":54,"error_message":"no scoreable events"}`}
}

func apiStatus(code int) siftResponse {
	return siftResponse{http.StatusBadRequest, fmt.Sprintf(`{"status":%d,"error_message":"nope"}`, code)}
}

// harness is an isolated home, input, output and fake score API.
type harness struct {
	home   string
	input  string
	output string
	env    map[string]string

	mu        sync.Mutex
	responses map[string]siftResponse
	requested []string
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		home:      filepath.Join(dir, "home"),
		input:     filepath.Join(dir, "input.csv"),
		output:    filepath.Join(dir, "output.csv"),
		responses: map[string]siftResponse{},
	}
	require.NoError(t, os.WriteFile(h.input, []byte(input), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(h.serveScore))
	t.Cleanup(srv.Close)

	require.NoError(t, os.MkdirAll(h.home, 0o750))
	cfgYAML := fmt.Sprintf("lookup:\n  base_url: %s\n", srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(h.home, "config.yaml"), []byte(cfgYAML), 0o600))

	h.env = map[string]string{
		"SCORELOOKUP_HOME":      h.home,
		"SCORELOOKUP_API_KEY":   "test-key",
		"SCORELOOKUP_INPUT":     h.input,
		"SCORELOOKUP_OUTPUT":    h.output,
		"SCORELOOKUP_LOG_LEVEL": "error",
	}
	return h
}

func (h *harness) serveScore(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v205/score/"), "/")

	h.mu.Lock()
	h.requested = append(h.requested, id)
	resp, ok := h.responses[id]
	h.mu.Unlock()

	if !ok {
		resp = unscored()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.httpStatus)
	_, _ = w.Write([]byte(resp.body))
}

func (h *harness) requests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.requested...)
}

func (h *harness) lookupEnv(key string) (string, bool) {
	v, ok := h.env[key]
	return v, ok
}

func (h *harness) execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmdWithArgs("test", h.lookupEnv)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (h *harness) readOutput(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(h.output)
	require.NoError(t, err)
	return string(data)
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
}
