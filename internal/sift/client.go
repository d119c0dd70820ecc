// Package sift is a minimal client for the Sift score API. It reports the
// tri-state outcome of a score lookup and leaves the decision of what to do
// with an unexpected status to the caller.
package sift

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/logging"
)

// Sift API status codes the lookup understands.
const (
	StatusOK       = 0
	StatusNotFound = 54
)

// Client defaults.
const (
	DefaultBaseURL    = "https://api.siftscience.com"
	DefaultAPIVersion = 205
	DefaultAbuseType  = "payment_abuse"
	DefaultTimeout    = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client errors.
var (
	ErrMissingAPIKey = errors.New("sift API key is required")
	ErrTransport     = errors.New("sift request failed")
	ErrDecode        = errors.New("sift response could not be decoded")
	ErrMissingScore  = errors.New("sift response has no score")
)

// Config configures a Client.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion int
	// AbuseType selects the entry of the "scores" map to read when the
	// response carries no top-level score.
	AbuseType string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client looks up scores from the Sift score API.
type Client struct {
	apiKey     string
	baseURL    *url.URL
	apiVersion int
	abuseType  string
	userAgent  string
	http       *http.Client
}

var _ engine.Lookup = (*Client)(nil)

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	rawBase := cfg.BaseURL
	if rawBase == "" {
		rawBase = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(rawBase, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid sift base URL %q", rawBase)
	}

	apiVersion := cfg.APIVersion
	if apiVersion <= 0 {
		apiVersion = DefaultAPIVersion
	}

	abuseType := cfg.AbuseType
	if abuseType == "" {
		abuseType = DefaultAbuseType
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		apiVersion: apiVersion,
		abuseType:  abuseType,
		userAgent:  cfg.UserAgent,
		http:       httpClient,
	}, nil
}

// scoreResponse is the subset of the score API response the client reads.
type scoreResponse struct {
	Status       *int     `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Score        *float64 `json:"score"`
	Scores       map[string]struct {
		Score *float64 `json:"score"`
	} `json:"scores"`
}

// Score looks up the score of one user. Status 0 yields Found, status 54
// yields NotFound and any other status yields UnexpectedStatus. Errors are
// returned only when no status could be obtained.
func (c *Client) Score(ctx context.Context, id engine.Identifier) (engine.Outcome, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scoreURL(id), nil)
	if err != nil {
		return engine.Outcome{}, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Outcome{}, fmt.Errorf("%w: %w", ErrTransport, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return engine.Outcome{}, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "sift").
		Str("identifier", id).
		Int("http_status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("score response received")

	var parsed scoreResponse
	if err = json.Unmarshal(body, &parsed); err != nil || parsed.Status == nil {
		return engine.Outcome{}, fmt.Errorf("%w: http status %d: %s",
			ErrDecode, resp.StatusCode, snippet(body))
	}

	switch *parsed.Status {
	case StatusOK:
		score, ok := parsed.score(c.abuseType)
		if !ok {
			return engine.Outcome{}, fmt.Errorf("%w: identifier %q, abuse type %q", ErrMissingScore, id, c.abuseType)
		}
		return engine.Found(score), nil
	case StatusNotFound:
		return engine.NotFound(), nil
	default:
		log.Warn().
			Ctx(ctx).
			Str("component", "sift").
			Str("identifier", id).
			Int("api_status", *parsed.Status).
			Str("error_message", parsed.ErrorMessage).
			Msg("unexpected sift status")
		return engine.UnexpectedStatus(*parsed.Status), nil
	}
}

// score picks the top-level score, falling back to the abuse-type score.
func (r *scoreResponse) score(abuseType string) (float64, bool) {
	if r.Score != nil {
		return *r.Score, true
	}
	if entry, ok := r.Scores[abuseType]; ok && entry.Score != nil {
		return *entry.Score, true
	}
	return 0, false
}

func (c *Client) scoreURL(id engine.Identifier) string {
	u := *c.baseURL
	u.Path = fmt.Sprintf("%s/v%d/score/%s/", c.baseURL.Path, c.apiVersion, id)
	u.RawPath = fmt.Sprintf("%s/v%d/score/%s/", c.baseURL.EscapedPath(), c.apiVersion, url.PathEscape(id))

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("abuse_types", c.abuseType)
	u.RawQuery = q.Encode()
	return u.String()
}

// redact removes the API key from transport errors that echo the request URL.
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if apiKey != "" && errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(apiKey), "REDACTED")
		urlErr.URL = strings.ReplaceAll(urlErr.URL, apiKey, "REDACTED")
	}
	return err
}

// snippet returns a short printable prefix of a response body.
func snippet(body []byte) string {
	const limit = 120
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return strconv.Quote(s)
}
