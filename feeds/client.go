package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/web3guy0/marketboard/internal/metrics"
)

// ═══════════════════════════════════════════════════════════════════════════════
// UPSTREAM HTTP - shared plumbing for the read-only market APIs
// ═══════════════════════════════════════════════════════════════════════════════

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// ErrInvalidFormat means the upstream answered 2xx with an unexpected body
var ErrInvalidFormat = errors.New("invalid response format")

// StatusError is a non-2xx answer from an upstream API
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Option configures a feed client
type Option func(*upstream)

// WithHTTPClient replaces the default client (30s timeout, no retries)
func WithHTTPClient(hc *http.Client) Option {
	return func(u *upstream) {
		u.http = hc
	}
}

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(base string) Option {
	return func(u *upstream) {
		u.baseURL = base
	}
}

// WithRateLimit paces requests to rps with the given burst. rps <= 0
// disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(u *upstream) {
		if rps <= 0 {
			u.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		u.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records call counts and latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *upstream) {
		u.metrics = m
	}
}

type upstream struct {
	provider string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
}

func newUpstream(provider, baseURL string, opts []Option) *upstream {
	u := &upstream{
		provider: provider,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// get issues one GET and returns the body of a 2xx response
func (u *upstream) get(ctx context.Context, path string, query url.Values) (body []byte, err error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	defer func() {
		u.metrics.ObserveUpstream(u.provider, time.Since(start), err)
	}()

	endpoint := u.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", u.provider, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", u.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		log.Warn().
			Str("provider", u.provider).
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("upstream returned error status")
		return nil, &StatusError{Provider: u.provider, StatusCode: resp.StatusCode, Body: snippet}
	}

	log.Debug().
		Str("provider", u.provider).
		Str("path", path).
		Dur("took", time.Since(start)).
		Int("bytes", len(body)).
		Msg("upstream fetch")

	return body, nil
}
