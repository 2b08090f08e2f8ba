package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/nightaudit/internal/model"
)

// APIError is a non-2xx response from the PMS backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pms api returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 to model.ErrNotFound so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return model.ErrNotFound
	}
	return nil
}

// Temporary reports whether the failure may succeed on a later attempt.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// UserMessage returns the backend's message without transport framing.
func (e *APIError) UserMessage() string {
	return e.Message
}

// decodeError is a 2xx response whose body could not be decoded. Repeating
// the request yields the same body.
type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return "decode " + e.path + " response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var decErr *decodeError
	if errors.As(err, &decErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Transport-level failures (refused, reset, per-attempt timeout).
	return true
}

// errorMessage extracts detail/message/error from a JSON error body.
func errorMessage(status int, raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, k := range []string{"detail", "message", "error"} {
			if s, ok := body[k].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "{") {
		return s
	}
	return http.StatusText(status)
}
