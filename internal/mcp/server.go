package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/nightaudit/internal/config"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// Config holds MCP server configuration.
type Config struct {
	Controller *workflow.Controller
	Version    string
	// ChargeNoShowFee is used when night_audit_no_shows omits charge_fee.
	ChargeNoShowFee bool
	Logger          *slog.Logger
}

// Server exposes one night audit session as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	ctl       *workflow.Controller
	logger    *slog.Logger

	mu        sync.Mutex
	chargeFee bool

	unsubscribe func()
}

// New creates an MCP server with the night audit tools registered.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("mcp server requires a workflow controller")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		ctl:       cfg.Controller,
		logger:    logger,
		chargeFee: cfg.ChargeNoShowFee,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "nightaudit",
			Version: version,
		},
		nil,
	)

	s.unsubscribe = s.ctl.Subscribe(s.logTransition)
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close stops session logging. The controller is left untouched.
func (s *Server) Close() {
	s.unsubscribe()
}

// logTransition logs every latch change at debug level.
func (s *Server) logTransition(v workflow.View) {
	s.logger.Debug("night audit session changed",
		"process_key", v.ProcessKey,
		"phase", v.Phase.String(),
		"running_step", v.RunningStep,
		"state", v.State(),
	)
}

// ApplyConfig installs reloadable settings: the ordering policy and the
// default no-show fee flag. Other fields need a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if o, err := cfg.Ordering(); err == nil {
		s.ctl.SetOrdering(o)
	}
	s.mu.Lock()
	s.chargeFee = cfg.Workflow.ChargeNoShowFee
	s.mu.Unlock()
	s.logger.Info("mcp settings applied", "ordering", cfg.Workflow.Ordering, "charge_no_show_fee", cfg.Workflow.ChargeNoShowFee)
}

// WatchConfig reloads path on change until ctx is cancelled.
func (s *Server) WatchConfig(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, s.ApplyConfig, s.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (s *Server) defaultChargeFee() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chargeFee
}

// registerTools adds all night audit tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_select",
		Description: "Select the audit date (YYYY-MM-DD, default today) and load its status and report.",
	}, s.handleSelect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_view",
		Description: "Show the current night audit session. Set refresh to reload status and report first.",
	}, s.handleView)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_start",
		Description: "Start the night audit for the selected date.",
	}, s.handleStart)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_post_revenue",
		Description: "Post room revenue for every occupied room. Not idempotent: each call posts again.",
	}, s.handlePostRevenue)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_no_shows",
		Description: "Process no-show bookings, optionally charging the no-show fee.",
	}, s.handleNoShows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_close_day",
		Description: "Close the business day. Requires an audit id from start or the loaded status.",
	}, s.handleCloseDay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "night_audit_abandon",
		Description: "Cancel the in-flight operation. A late response is discarded.",
	}, s.handleAbandon)
}
