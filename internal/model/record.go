package model

import (
	"encoding/json"
	"time"
)

// Outcome is how a step invocation ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected" // refused before any network call
	OutcomeStale     Outcome = "stale"    // completed after the session moved on
)

// StepRecord is the journal entry for one step invocation.
type StepRecord struct {
	Session    string          `json:"session"`
	ProcessKey ProcessKey      `json:"process_key"`
	Step       StepName        `json:"step"`
	Outcome    Outcome         `json:"outcome"`
	AuditID    string          `json:"audit_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
}
