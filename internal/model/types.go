package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by remote reads when the backend has no record
// for the requested key. For audit reports this is a normal state, not a failure.
var ErrNotFound = errors.New("not found")

// AuditState is the server-reported lifecycle state of a night audit.
type AuditState string

const (
	StateNotStarted AuditState = "not_started"
	StateInProgress AuditState = "in_progress"
	StateCompleted  AuditState = "completed"
)

// Valid reports whether s is one of the known states.
func (s AuditState) Valid() bool {
	switch s {
	case StateNotStarted, StateInProgress, StateCompleted:
		return true
	}
	return false
}

// AuditStatus is the night-audit record for one date as the backend sees it.
// ID is empty until the audit has been started.
type AuditStatus struct {
	ID     string     `json:"id,omitempty"`
	Status AuditState `json:"status"`
}

// AuditSummary holds the aggregate figures of a started audit.
type AuditSummary struct {
	TotalRooms    int             `json:"total_rooms"`
	OccupiedRooms int             `json:"occupied_rooms"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// BookingStatusCount is one row of the bookings-by-status breakdown.
type BookingStatusCount struct {
	Status  string          `json:"status"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AuditReport is the derived report for a date. Audit is nil when the
// backend has not produced a summary yet.
type AuditReport struct {
	Audit            *AuditSummary        `json:"audit"`
	BookingsByStatus []BookingStatusCount `json:"bookings_by_status"`
}

// OccupancyPercent returns occupied/total*100. The second return is false
// when there is no summary or total_rooms is zero.
func (r *AuditReport) OccupancyPercent() (decimal.Decimal, bool) {
	if r == nil || r.Audit == nil || r.Audit.TotalRooms <= 0 {
		return decimal.Zero, false
	}
	occupied := decimal.NewFromInt(int64(r.Audit.OccupiedRooms))
	total := decimal.NewFromInt(int64(r.Audit.TotalRooms))
	return occupied.Div(total).Mul(decimal.NewFromInt(100)), true
}
