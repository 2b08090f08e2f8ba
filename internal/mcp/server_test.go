package mcp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/nightaudit/internal/client"
	"github.com/ppiankov/nightaudit/internal/config"
	"github.com/ppiankov/nightaudit/internal/sandbox"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T, opts ...workflow.Option) *Server {
	t.Helper()
	sb := sandbox.New(sandbox.Config{Logger: discard()})
	ts := httptest.NewServer(sb.Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(ts.URL, client.WithReadRetries(0))
	require.NoError(t, err)

	opts = append([]workflow.Option{workflow.WithLogger(discard())}, opts...)
	s, err := New(Config{Controller: workflow.New(c, opts...), Logger: discard()})
	if err != nil {
		t.Fatalf("failed to create MCP server: %v", err)
	}
	return s
}

func selectDay(t *testing.T, s *Server) SessionOutput {
	t.Helper()
	result, out, err := s.handleSelect(context.Background(), &mcpsdk.CallToolRequest{}, SelectInput{Date: "2024-03-01"})
	require.NoError(t, err)
	require.Nil(t, result, "select failed: %s", out.Error)
	return out
}

func TestNewRequiresController(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestToolRegistration(t *testing.T) {
	s := newTestServer(t)
	if s.mcpServer == nil {
		t.Fatal("expected MCP server to be initialized")
	}
}

func TestSelectLoadsStatus(t *testing.T) {
	s := newTestServer(t)
	out := selectDay(t, s)

	assert.Equal(t, "2024-03-01", out.ProcessKey)
	assert.Equal(t, "not_started", out.AuditStatus)
	assert.Equal(t, string(workflow.SessionIdle), out.State)
	assert.Equal(t, workflow.OccupancyPlaceholder, out.Occupancy)
	assert.Equal(t, "0.00", out.Revenue)
	require.Len(t, out.Steps, 4)
	assert.Equal(t, "start", out.Steps[0].Name)
}

func TestSelectRejectsBadDate(t *testing.T) {
	s := newTestServer(t)
	result, out, err := s.handleSelect(context.Background(), &mcpsdk.CallToolRequest{}, SelectInput{Date: "03/01/2024"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, out.ProcessKey)
}

func TestFullCycleThroughTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := &mcpsdk.CallToolRequest{}
	selectDay(t, s)

	result, out, err := s.handleStart(ctx, req, StepInput{})
	require.NoError(t, err)
	require.Nil(t, result, out.Error)
	assert.NotEmpty(t, out.AuditID)
	assert.Equal(t, "in_progress", out.AuditStatus)
	assert.Equal(t, "75.0%", out.Occupancy)

	result, out, err = s.handlePostRevenue(ctx, req, StepInput{})
	require.NoError(t, err)
	require.Nil(t, result, out.Error)
	assert.Equal(t, string(workflow.SessionRoomRevenuePosted), out.State)

	fee := true
	result, out, err = s.handleNoShows(ctx, req, NoShowsInput{ChargeFee: &fee})
	require.NoError(t, err)
	require.Nil(t, result, out.Error)
	assert.Equal(t, "4860.00", out.Revenue)

	result, out, err = s.handleCloseDay(ctx, req, StepInput{})
	require.NoError(t, err)
	require.Nil(t, result, out.Error)
	assert.Equal(t, "completed", out.AuditStatus)
	assert.Equal(t, string(workflow.SessionClosed), out.State)
	for _, st := range out.Steps {
		assert.True(t, st.Completed, st.Name)
	}
}

func TestCloseDayWithoutAuditID(t *testing.T) {
	s := newTestServer(t)
	selectDay(t, s)

	result, out, err := s.handleCloseDay(context.Background(), &mcpsdk.CallToolRequest{}, StepInput{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Equal(t, "Audit ID not found. Please start the audit first.", out.Error)
}

func TestStepFailureCarriesBackendDetail(t *testing.T) {
	s := newTestServer(t)
	selectDay(t, s)

	// Posting before start is refused by the backend.
	result, out, err := s.handlePostRevenue(context.Background(), &mcpsdk.CallToolRequest{}, StepInput{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to post room revenue: night audit for 2024-03-01 has not been started", out.Error)
	require.NotEmpty(t, out.Notices)
	assert.Equal(t, "error", out.Notices[len(out.Notices)-1].Level)
}

func TestStrictOrderingRejectsBeforeCall(t *testing.T) {
	s := newTestServer(t, workflow.WithOrdering(workflow.OrderingStrict))
	selectDay(t, s)

	result, out, err := s.handleNoShows(context.Background(), &mcpsdk.CallToolRequest{}, NoShowsInput{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.True(t, strings.HasPrefix(out.Error, "Process no-shows rejected: step out of order"), out.Error)
	n := out.Notices[len(out.Notices)-1]
	assert.Equal(t, n.Message, out.Error)
}

func TestStepWithoutSelection(t *testing.T) {
	s := newTestServer(t)
	result, out, err := s.handleStart(context.Background(), &mcpsdk.CallToolRequest{}, StepInput{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, workflow.ErrNoProcessKey.Error(), out.Error)
}

func TestViewWithRefresh(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := &mcpsdk.CallToolRequest{}

	result, out, err := s.handleView(ctx, req, ViewInput{})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, out.ProcessKey)

	selectDay(t, s)
	result, out, err = s.handleView(ctx, req, ViewInput{Refresh: true})
	require.NoError(t, err)
	assert.Nil(t, result, out.Error)
	assert.Equal(t, "not_started", out.AuditStatus)
}

func TestAbandonWhenIdle(t *testing.T) {
	s := newTestServer(t)
	selectDay(t, s)

	result, out, err := s.handleAbandon(context.Background(), &mcpsdk.CallToolRequest{}, StepInput{})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.False(t, out.Abandoned)
	assert.Equal(t, "idle", out.Session.Phase)
}

func TestApplyConfigUpdatesOrderingAndFee(t *testing.T) {
	s := newTestServer(t)
	cfg := config.Default()
	cfg.Workflow.Ordering = "strict"
	cfg.Workflow.ChargeNoShowFee = true

	s.ApplyConfig(cfg)
	assert.Equal(t, workflow.OrderingStrict, s.ctl.View().Ordering)
	assert.True(t, s.defaultChargeFee())
}

func TestWatchConfigAppliesReload(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Write(path, config.Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.WatchConfig(ctx, path) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("workflow:\n  ordering: strict\n"), 0o600))

	assert.Eventually(t, func() bool {
		return s.ctl.View().Ordering == workflow.OrderingStrict
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestSessionTransitionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sb := sandbox.New(sandbox.Config{Logger: discard()})
	ts := httptest.NewServer(sb.Handler())
	t.Cleanup(ts.Close)
	c, err := client.New(ts.URL, client.WithReadRetries(0))
	require.NoError(t, err)

	s, err := New(Config{Controller: workflow.New(c, workflow.WithLogger(discard())), Logger: logger})
	require.NoError(t, err)
	selectDay(t, s)
	_, _, err = s.handleStart(context.Background(), &mcpsdk.CallToolRequest{}, StepInput{})
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, "night audit session changed")
	assert.Contains(t, logged, "phase=running")
	assert.Contains(t, logged, "running_step=start")

	s.Close()
	buf.Reset()
	_, _, err = s.handleView(context.Background(), &mcpsdk.CallToolRequest{}, ViewInput{Refresh: true})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "night audit session changed")
}
