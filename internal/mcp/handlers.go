package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// --- Input/Output types ---

// SelectInput defines parameters for the night_audit_select tool.
type SelectInput struct {
	Date string `json:"date,omitempty" jsonschema:"audit date YYYY-MM-DD, omit for today"`
}

// ViewInput defines parameters for the night_audit_view tool.
type ViewInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"reload status and report before returning"`
}

// StepInput is empty, no parameters needed.
type StepInput struct{}

// NoShowsInput defines parameters for the night_audit_no_shows tool.
type NoShowsInput struct {
	ChargeFee *bool `json:"charge_fee,omitempty" jsonschema:"charge the no-show fee, omit for the configured default"`
}

// SessionOutput is the flattened session view returned by every tool.
// Money and percentages are preformatted strings.
type SessionOutput struct {
	ProcessKey  string          `json:"process_key"`
	State       string          `json:"state"`
	Phase       string          `json:"phase"`
	RunningStep string          `json:"running_step,omitempty"`
	Ordering    string          `json:"ordering"`
	AuditStatus string          `json:"audit_status,omitempty"`
	AuditID     string          `json:"audit_id,omitempty"`
	StatusError string          `json:"status_error,omitempty"`
	ReportError string          `json:"report_error,omitempty"`
	Occupancy   string          `json:"occupancy"`
	Revenue     string          `json:"revenue"`
	Bookings    []BookingOutput `json:"bookings,omitempty"`
	Steps       []StepOutput    `json:"steps"`
	Notices     []NoticeOutput  `json:"notices,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// BookingOutput is one bookings-by-status row.
type BookingOutput struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Revenue string `json:"revenue"`
}

// StepOutput describes one checklist step.
type StepOutput struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Enabled   bool   `json:"enabled"`
}

// NoticeOutput is one user-facing notification.
type NoticeOutput struct {
	Level   string `json:"level"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
	At      string `json:"at"`
}

// AbandonOutput reports whether anything was cancelled.
type AbandonOutput struct {
	Abandoned bool          `json:"abandoned"`
	Session   SessionOutput `json:"session"`
}

// --- Handlers ---

func (s *Server) handleSelect(ctx context.Context, req *mcpsdk.CallToolRequest, input SelectInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	key := model.Today()
	if input.Date != "" {
		k, err := model.ParseProcessKey(input.Date)
		if err != nil {
			out := sessionOutput(s.ctl.View())
			out.Error = err.Error()
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		key = k
	}
	v, err := s.ctl.Select(ctx, key)
	return s.respond(v, err)
}

func (s *Server) handleView(ctx context.Context, req *mcpsdk.CallToolRequest, input ViewInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	if !input.Refresh {
		return nil, sessionOutput(s.ctl.View()), nil
	}
	v, err := s.ctl.Refresh(ctx)
	return s.respond(v, err)
}

func (s *Server) handleStart(ctx context.Context, req *mcpsdk.CallToolRequest, input StepInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	_, err := s.ctl.Start(ctx)
	return s.respond(s.ctl.View(), err)
}

func (s *Server) handlePostRevenue(ctx context.Context, req *mcpsdk.CallToolRequest, input StepInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	_, err := s.ctl.PostRoomRevenue(ctx)
	return s.respond(s.ctl.View(), err)
}

func (s *Server) handleNoShows(ctx context.Context, req *mcpsdk.CallToolRequest, input NoShowsInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	fee := s.defaultChargeFee()
	if input.ChargeFee != nil {
		fee = *input.ChargeFee
	}
	_, err := s.ctl.ProcessNoShows(ctx, fee)
	return s.respond(s.ctl.View(), err)
}

func (s *Server) handleCloseDay(ctx context.Context, req *mcpsdk.CallToolRequest, input StepInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	_, err := s.ctl.CloseDay(ctx)
	return s.respond(s.ctl.View(), err)
}

func (s *Server) handleAbandon(ctx context.Context, req *mcpsdk.CallToolRequest, input StepInput) (*mcpsdk.CallToolResult, AbandonOutput, error) {
	abandoned := s.ctl.Abandon()
	return nil, AbandonOutput{Abandoned: abandoned, Session: sessionOutput(s.ctl.View())}, nil
}

// respond maps a controller error onto a tool error result. Workflow
// failures are reported to the caller, never returned as protocol errors.
func (s *Server) respond(v workflow.View, err error) (*mcpsdk.CallToolResult, SessionOutput, error) {
	out := sessionOutput(v)
	if err == nil {
		return nil, out, nil
	}
	out.Error = v.ErrorText(err)
	s.logger.Debug("tool call rejected", "process_key", v.ProcessKey, "error", err)
	return &mcpsdk.CallToolResult{IsError: true}, out, nil
}

func sessionOutput(v workflow.View) SessionOutput {
	out := SessionOutput{
		ProcessKey:  string(v.ProcessKey),
		State:       string(v.State()),
		Phase:       v.Phase.String(),
		RunningStep: string(v.RunningStep),
		Ordering:    string(v.Ordering),
		AuditID:     v.AuditID,
		StatusError: v.StatusError,
		ReportError: v.ReportError,
		Occupancy:   v.OccupancyDisplay(),
		Revenue:     v.RevenueDisplay(),
	}
	if v.Status != nil {
		out.AuditStatus = string(v.Status.Status)
	}
	if v.Report != nil {
		for _, b := range v.Report.BookingsByStatus {
			out.Bookings = append(out.Bookings, BookingOutput{
				Status:  b.Status,
				Count:   b.Count,
				Revenue: model.FormatMoney(b.Revenue),
			})
		}
	}
	for _, st := range v.Steps {
		out.Steps = append(out.Steps, StepOutput{
			Name:      string(st.Name),
			Title:     st.Title,
			Completed: st.Completed,
			Enabled:   st.Enabled,
		})
	}
	for _, n := range v.Notices {
		out.Notices = append(out.Notices, NoticeOutput{
			Level:   string(n.Level),
			Step:    string(n.Step),
			Message: n.Message,
			At:      n.At.UTC().Format(time.RFC3339),
		})
	}
	return out
}
