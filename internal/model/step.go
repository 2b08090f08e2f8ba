package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StepName identifies one of the four night-audit actions.
type StepName string

const (
	StepStart       StepName = "start"
	StepAutoPosting StepName = "auto_posting"
	StepNoShow      StepName = "no_show"
	StepEndOfDay    StepName = "end_of_day"
)

var stepOrder = []StepName{StepStart, StepAutoPosting, StepNoShow, StepEndOfDay}

// Steps returns the steps in their fixed display order.
func Steps() []StepName {
	out := make([]StepName, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// ParseStepName accepts the canonical names plus the CLI spellings.
func ParseStepName(s string) (StepName, error) {
	switch s {
	case string(StepStart):
		return StepStart, nil
	case string(StepAutoPosting), "post-revenue", "auto-posting":
		return StepAutoPosting, nil
	case string(StepNoShow), "no-shows", "no-show":
		return StepNoShow, nil
	case string(StepEndOfDay), "close", "end-of-day":
		return StepEndOfDay, nil
	}
	return "", fmt.Errorf("unknown step %q", s)
}

// Index returns the step's position in Steps(), or -1.
func (s StepName) Index() int {
	for i, n := range stepOrder {
		if n == s {
			return i
		}
	}
	return -1
}

// Title is the operator-facing label of the step.
func (s StepName) Title() string {
	switch s {
	case StepStart:
		return "Start night audit"
	case StepAutoPosting:
		return "Post room revenue"
	case StepNoShow:
		return "Process no-shows"
	case StepEndOfDay:
		return "Close day"
	}
	return string(s)
}

// StepResult is the typed payload returned by a step's remote call.
// It is kept for display only and never re-submitted.
type StepResult interface {
	Step() StepName
	isStepResult()
}

// StartStatistics is the snapshot the backend computes when an audit starts.
type StartStatistics struct {
	TotalRooms   int             `json:"total_rooms"`
	OccupancyPct decimal.Decimal `json:"occupancy_pct"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// StartResult is returned by StartAudit.
type StartResult struct {
	AuditID    string          `json:"audit_id"`
	Statistics StartStatistics `json:"statistics"`
}

// AutoPostingResult is returned by PostRoomRevenue.
type AutoPostingResult struct {
	PostedCount       int             `json:"posted_count"`
	TotalAmountPosted decimal.Decimal `json:"total_amount_posted"`
}

// NoShowResult is returned by ProcessNoShows.
type NoShowResult struct {
	NoShowsProcessed   int             `json:"no_shows_processed"`
	TotalNoShowCharges decimal.Decimal `json:"total_no_show_charges"`
}

// CloseSummary is the day summary produced when the day is closed.
type CloseSummary struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	NoShows       int             `json:"no_shows"`
	OccupiedRooms int             `json:"occupied_rooms"`
}

// EndOfDayResult is returned by CloseDay.
type EndOfDayResult struct {
	Summary CloseSummary `json:"summary"`
}

func (StartResult) Step() StepName       { return StepStart }
func (AutoPostingResult) Step() StepName { return StepAutoPosting }
func (NoShowResult) Step() StepName      { return StepNoShow }
func (EndOfDayResult) Step() StepName    { return StepEndOfDay }

func (StartResult) isStepResult()       {}
func (AutoPostingResult) isStepResult() {}
func (NoShowResult) isStepResult()      {}
func (EndOfDayResult) isStepResult()    {}

// FormatMoney renders an amount with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
