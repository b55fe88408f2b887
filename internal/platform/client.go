package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3

	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 5 * time.Second

	maxErrorBodyBytes = 1024
)

// StatusError represents a non-2xx platform response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Config holds the connection settings for the contest platform API.
type Config struct {
	// BaseURL is the API root, e.g. "https://judge.example.org/api/v4".
	BaseURL       string
	AdminUser     string
	AdminPassword string
	Timeout       time.Duration
	// Retries is the number of retries per request on 5xx or transport
	// failures, on top of the initial attempt.
	Retries int
	// Propagate injects W3C trace context headers into every request.
	Propagate bool
}

// Client talks to the contest platform REST API with admin credentials.
// Team-authenticated submissions go through Submit, which carries its own
// per-team credentials.
type Client struct {
	base      string
	user      string
	pass      string
	http      *http.Client
	retries   int
	propagate bool
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("platform: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("platform: invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	} else if cfg.Retries == 0 {
		retries = defaultRetries
	}
	return &Client{
		base:      base,
		user:      cfg.AdminUser,
		pass:      cfg.AdminPassword,
		http:      newHTTPClient(timeout),
		retries:   retries,
		propagate: cfg.Propagate,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type requestSpec struct {
	method      string
	endpoint    string
	contentType string
	// newBody rebuilds the request body for each attempt so retries do not
	// reuse a drained reader.
	newBody func() (io.Reader, error)
	// auth overrides the admin credentials when set.
	user, pass string
}

// do performs a request with bounded exponential-backoff retries on 5xx, 429
// and transport errors. It returns the response body on 2xx.
func (c *Client) do(ctx context.Context, spec requestSpec) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		body, err := c.attempt(ctx, spec)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, spec requestSpec) ([]byte, error) {
	var reader io.Reader
	if spec.newBody != nil {
		var err error
		reader, err = spec.newBody()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, c.base+"/"+strings.TrimLeft(spec.endpoint, "/"), reader)
	if err != nil {
		return nil, err
	}
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	user, pass := c.user, c.pass
	if spec.user != "" {
		user, pass = spec.user, spec.pass
	}
	req.SetBasicAuth(user, pass)
	if c.propagate {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	return io.ReadAll(resp.Body)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	// Transport-level failure.
	return true
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
