package workflow

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/nightaudit/internal/model"
)

// OccupancyPlaceholder is shown when occupancy cannot be computed.
const OccupancyPlaceholder = "N/A"

// SessionState is the advisory progress of the audit for the selected date.
// It is derived for display and never enforced.
type SessionState string

const (
	SessionIdle              SessionState = "idle"
	SessionAuditStarted      SessionState = "audit_started"
	SessionRoomRevenuePosted SessionState = "room_revenue_posted"
	SessionNoShowsProcessed  SessionState = "no_shows_processed"
	SessionClosed            SessionState = "closed"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is a user-facing message produced by the controller.
type Notice struct {
	Level   Level          `json:"level"`
	Step    model.StepName `json:"step,omitempty"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
}

// StepView describes one entry of the ordered step list.
type StepView struct {
	Name      model.StepName `json:"name"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	Enabled   bool           `json:"enabled"`
}

// View is an immutable snapshot of the controller for rendering.
type View struct {
	ProcessKey  model.ProcessKey   `json:"process_key"`
	Phase       Phase              `json:"phase"`
	RunningStep model.StepName     `json:"running_step,omitempty"`
	Disabled    bool               `json:"disabled"`
	Status      *model.AuditStatus `json:"status"`
	StatusError string             `json:"status_error,omitempty"`
	Report      *model.AuditReport `json:"report"`
	ReportError string             `json:"report_error,omitempty"`
	AuditID     string             `json:"audit_id,omitempty"`
	Ordering    Ordering           `json:"ordering"`
	Results     Results            `json:"results"`
	Steps       []StepView         `json:"steps"`
	Notices     []Notice           `json:"notices,omitempty"`
}

// State derives the advisory session state. Closed is reported only when
// the backend says the audit is completed.
func (v View) State() SessionState {
	switch {
	case v.Status != nil && v.Status.Status == model.StateCompleted:
		return SessionClosed
	case v.Results.NoShow != nil:
		return SessionNoShowsProcessed
	case v.Results.AutoPosting != nil:
		return SessionRoomRevenuePosted
	case v.Results.Start != nil, v.Status != nil && v.Status.Status == model.StateInProgress:
		return SessionAuditStarted
	}
	return SessionIdle
}

// OccupancyDisplay formats occupied/total rooms as a percentage with one
// decimal, or OccupancyPlaceholder when total_rooms is not positive.
func (v View) OccupancyDisplay() string {
	pct, ok := v.Report.OccupancyPercent()
	if !ok {
		return OccupancyPlaceholder
	}
	return pct.StringFixed(1) + "%"
}

// RevenueDisplay formats the report's total revenue with two decimals.
func (v View) RevenueDisplay() string {
	if v.Report == nil || v.Report.Audit == nil {
		return model.FormatMoney(decimal.Zero)
	}
	return model.FormatMoney(v.Report.Audit.TotalRevenue)
}

// LastNotice returns the most recent notice, if any.
func (v View) LastNotice() (Notice, bool) {
	if len(v.Notices) == 0 {
		return Notice{}, false
	}
	return v.Notices[len(v.Notices)-1], true
}

// ErrorText returns the operator-facing text for an error returned by a
// step or load of this session. Step failures and rejections that raised a
// notice report that notice; everything else falls back to UserMessage.
func (v View) ErrorText(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) || errors.Is(err, ErrNoAuditID) || errors.Is(err, ErrOutOfOrder) {
		if n, ok := v.LastNotice(); ok && n.Level == LevelError {
			return n.Message
		}
	}
	return UserMessage(err)
}
