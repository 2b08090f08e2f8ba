package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Endpoint paths of the PMS night-audit API.
const (
	PathStatus      = "/api/night-audit/status"
	PathReport      = "/api/night-audit/audit-report"
	PathStart       = "/api/night-audit/start"
	PathAutoPosting = "/api/night-audit/automatic-posting"
	PathNoShows     = "/api/night-audit/no-show-handling"
	PathEndOfDay    = "/api/night-audit/end-of-day"
)

const maxErrorBody = 64 << 10

// Client talks to the PMS night-audit REST API.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	token         string
	tenant        string
	timeout       time.Duration
	readRetries   int
	retryInterval time.Duration
	logger        *slog.Logger
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("pms base url is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid pms base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid pms base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:       u,
		http:          http.DefaultClient,
		timeout:       30 * time.Second,
		readRetries:   2,
		retryInterval: 250 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type dateRequest struct {
	AuditDate model.ProcessKey `json:"audit_date"`
}

type noShowRequest struct {
	AuditDate       model.ProcessKey `json:"audit_date"`
	ChargeNoShowFee bool             `json:"charge_no_show_fee"`
}

type endOfDayRequest struct {
	AuditID string `json:"audit_id"`
}

// GetStatus returns the audit record state for a date.
func (c *Client) GetStatus(ctx context.Context, key model.ProcessKey) (model.AuditStatus, error) {
	var st model.AuditStatus
	if err := c.read(ctx, PathStatus, dateQuery(key), &st); err != nil {
		return model.AuditStatus{}, fmt.Errorf("get audit status: %w", err)
	}
	if st.Status == "" {
		st.Status = model.StateNotStarted
	}
	if !st.Status.Valid() {
		return model.AuditStatus{}, fmt.Errorf("get audit status: unexpected status %q", st.Status)
	}
	return st, nil
}

// GetReport returns the audit report for a date. A date without a report
// yields an error wrapping model.ErrNotFound.
func (c *Client) GetReport(ctx context.Context, key model.ProcessKey) (*model.AuditReport, error) {
	var r model.AuditReport
	if err := c.read(ctx, PathReport, dateQuery(key), &r); err != nil {
		return nil, fmt.Errorf("get audit report: %w", err)
	}
	return &r, nil
}

// StartAudit opens the night audit for a date.
func (c *Client) StartAudit(ctx context.Context, key model.ProcessKey) (model.StartResult, error) {
	var res model.StartResult
	if err := c.do(ctx, http.MethodPost, PathStart, nil, dateRequest{AuditDate: key}, &res); err != nil {
		return model.StartResult{}, fmt.Errorf("start audit: %w", err)
	}
	return res, nil
}

// PostRoomRevenue posts the night's room charges to in-house folios.
func (c *Client) PostRoomRevenue(ctx context.Context, key model.ProcessKey) (model.AutoPostingResult, error) {
	var res model.AutoPostingResult
	if err := c.do(ctx, http.MethodPost, PathAutoPosting, nil, dateRequest{AuditDate: key}, &res); err != nil {
		return model.AutoPostingResult{}, fmt.Errorf("post room revenue: %w", err)
	}
	return res, nil
}

// ProcessNoShows marks unarrived reservations as no-shows, optionally charging the fee.
func (c *Client) ProcessNoShows(ctx context.Context, key model.ProcessKey, chargeFee bool) (model.NoShowResult, error) {
	var res model.NoShowResult
	body := noShowRequest{AuditDate: key, ChargeNoShowFee: chargeFee}
	if err := c.do(ctx, http.MethodPost, PathNoShows, nil, body, &res); err != nil {
		return model.NoShowResult{}, fmt.Errorf("process no-shows: %w", err)
	}
	return res, nil
}

// CloseDay completes the audit identified by auditID.
func (c *Client) CloseDay(ctx context.Context, auditID string) (model.EndOfDayResult, error) {
	var res model.EndOfDayResult
	if err := c.do(ctx, http.MethodPost, PathEndOfDay, nil, endOfDayRequest{AuditID: auditID}, &res); err != nil {
		return model.EndOfDayResult{}, fmt.Errorf("close day: %w", err)
	}
	return res, nil
}

// read performs an idempotent GET, retrying transient failures.
func (c *Client) read(ctx context.Context, path string, query url.Values, out any) error {
	if c.readRetries == 0 {
		return c.do(ctx, http.MethodGet, path, query, nil, out)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.readRetries)), ctx)

	op := func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil || isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debug("retrying pms read", "path", path, "error", err, "next", next)
	}
	return backoff.RetryNotify(op, b, notify)
}

// do performs exactly one HTTP round trip.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("pms request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &decodeError{path: path, err: err}
	}
	return nil
}

func dateQuery(key model.ProcessKey) url.Values {
	return url.Values{"audit_date": []string{string(key)}}
}
