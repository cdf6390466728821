// Package fetcher downloads source documents over HTTP with bounded retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"golang.org/x/time/rate"
)

const (
	DefaultAttempts = 3
	DefaultTimeout  = 60 * time.Second
	DefaultMaxBytes = 100 << 20

	// DefaultUserAgent mimics a desktop browser; some origins reject bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// HTTPDoer is the subset of *http.Client used by the fetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	Attempts  int
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// RateLimit is the number of outbound requests per second; 0 means unlimited.
	RateLimit float64
}

// Fetcher downloads binary resources from http and https URLs.
type Fetcher struct {
	client    HTTPDoer
	attempts  int
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	limiter   *rate.Limiter
	sleep     SleepFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// New creates a Fetcher, filling zero config values with defaults.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	f := &Fetcher{
		client:    &http.Client{},
		attempts:  cfg.Attempts,
		timeout:   cfg.Timeout,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := domain.ValidateDocumentURL(rawURL); err != nil {
		return nil, err
	}

	var last attemptResult
	for attempt := 0; attempt < f.attempts; attempt++ {
		log.Printf("fetch: attempt %d/%d for %s", attempt+1, f.attempts, rawURL)

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		last = f.attempt(ctx, rawURL)
		switch last.kind {
		case resultOK:
			return last.body, nil
		case resultFatal:
			return nil, last.err
		}

		log.Printf("fetch: attempt %d/%d failed: %v", attempt+1, f.attempts, last.err)
		telemetry.AddBreadcrumb(ctx, "fetch", fmt.Sprintf("attempt %d/%d failed: %v", attempt+1, f.attempts, last.err))
		if attempt == f.attempts-1 {
			break
		}
		if err := f.sleep(ctx, Backoff(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, last.terminal()
}

// Backoff returns the wait before the retry that follows attempt (0-based).
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fatal(domain.ErrInvalidURL.Wrap(err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, rawURL)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "pdf") && !strings.Contains(contentType, "application/octet-stream") {
		log.Printf("fetch: unexpected content type %q for %s", contentType, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if int64(len(body)) > f.maxBytes {
		return fatal(domain.ErrUpstream.Wrap(fmt.Errorf("document exceeds %d bytes", f.maxBytes)))
	}

	return attemptResult{kind: resultOK, body: body}
}

func classifyStatus(status int, rawURL string) attemptResult {
	switch status {
	case http.StatusNotFound:
		return fatal(domain.ErrResourceNotFound.Wrap(fmt.Errorf("GET %s: status %d", rawURL, status)))
	case http.StatusForbidden:
		return fatal(domain.ErrAccessDenied.Wrap(fmt.Errorf("GET %s: status %d", rawURL, status)))
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return retryable(failureStatus, fmt.Errorf("GET %s: status %d", rawURL, status))
	default:
		return fatal(domain.ErrUpstream.Wrap(fmt.Errorf("GET %s: status %d", rawURL, status)))
	}
}

// classifyTransportError separates per-attempt timeouts from connection
// failures. Cancellation of the caller's context is never retried.
func classifyTransportError(parent context.Context, err error) attemptResult {
	if parent.Err() != nil {
		return fatal(parent.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return retryable(failureTimeout, err)
	}
	return retryable(failureConnection, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
