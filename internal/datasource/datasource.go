// Package datasource fetches market news from third-party providers and
// normalizes it into models.Article. Providers are tried in priority order by
// the Aggregator, which always terminates in a deterministic mock source so a
// search never comes back empty-handed.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/seenimoa/stockpulse/pkg/models"
)

// Provider page-size ceilings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SearchSpec describes one search against a news provider. Zero values mean
// "provider default". From and To are ISO 8601 dates (YYYY-MM-DD).
type SearchSpec struct {
	Query    string
	PageSize int
	Country  string
	Category string
	Language string
	From     string
	To       string
}

// pageSize clamps the requested page size into (0, max].
func (s SearchSpec) pageSize(max int) int {
	switch {
	case s.PageSize <= 0:
		if DefaultPageSize < max {
			return DefaultPageSize
		}
		return max
	case s.PageSize > max:
		return max
	default:
		return s.PageSize
	}
}

// Provider is a news source adapter. Search returns articles in the
// provider's native order, or a *ProviderError.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Configured reports whether the provider has usable credentials.
	// Unconfigured providers are skipped without a network call.
	Configured() bool

	// Search runs one query against the provider.
	Search(ctx context.Context, spec SearchSpec) ([]models.Article, error)
}

// --- Errors ---

// ErrProviderNotConfigured marks a provider whose credential is absent or a
// placeholder.
var ErrProviderNotConfigured = errors.New("provider not configured")

// ErrEmptyResult marks a successful call that produced no usable articles.
var ErrEmptyResult = errors.New("provider returned no articles")

// ErrMalformedResponse marks a response body without the expected shape.
var ErrMalformedResponse = errors.New("malformed provider response")

// ProviderError is the single error kind raised by adapters.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP plumbing ---

// DefaultUserAgent is the user agent string used for provider requests.
const DefaultUserAgent = "stockpulse/1.0 (+https://github.com/seenimoa/stockpulse)"

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 15 * time.Second

// httpSource carries what the HTTP-backed adapters share.
type httpSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures an HTTP-backed provider.
type Option func(*httpSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *httpSource) { s.client = client }
}

// WithBaseURL overrides the provider endpoint (tests, proxies).
func WithBaseURL(url string) Option {
	return func(s *httpSource) { s.baseURL = url }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *httpSource) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit paces requests to at most perSecond, with a burst of one.
// Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(s *httpSource) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func newHTTPSource(apiKey, baseURL string, opts []Option) httpSource {
	s := httpSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// get performs a GET and returns the body of a 2xx response.
func (s *httpSource) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
