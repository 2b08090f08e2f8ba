package client

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client at creation time.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (e.g. httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTenant sets the X-Tenant-ID header for multi-tenant backends.
func WithTenant(tenant string) Option {
	return func(c *Client) { c.tenant = tenant }
}

// WithTimeout bounds each HTTP attempt. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithReadRetries sets how many times a failed status/report read is retried.
// Step actions are never retried.
func WithReadRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.readRetries = n
	}
}

// WithRetryInterval sets the initial backoff interval between read retries.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}
