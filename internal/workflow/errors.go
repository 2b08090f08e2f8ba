package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/nightaudit/internal/model"
)

var (
	// ErrBusy is returned when a step or load is already in flight.
	// The rejected call has no effect.
	ErrBusy = errors.New("another night audit operation is in progress")

	// ErrNoProcessKey is returned when no audit date has been selected.
	ErrNoProcessKey = errors.New("no audit date selected")

	// ErrNoAuditID is returned by CloseDay before any network call when the
	// session has no audit id.
	ErrNoAuditID = errors.New("audit ID not found, start the audit first")

	// ErrOutOfOrder is returned under strict ordering when a step's
	// precondition does not hold.
	ErrOutOfOrder = errors.New("step out of order")

	// ErrStale is returned when a response arrives for a session that has
	// since been replaced or abandoned; the response is not applied.
	ErrStale = errors.New("response discarded, session has moved on")
)

// StepError wraps a remote failure of one step.
type StepError struct {
	Step model.StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step.Title(), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type userMessager interface {
	UserMessage() string
}

// UserMessage reduces err to the text an operator should see.
func UserMessage(err error) string {
	var m userMessager
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
