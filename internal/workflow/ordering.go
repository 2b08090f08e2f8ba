package workflow

import (
	"fmt"
	"strings"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Ordering decides whether steps must follow the server-side audit state.
type Ordering string

const (
	// OrderingPermissive allows any step at any time.
	OrderingPermissive Ordering = "permissive"
	// OrderingStrict checks each step against the precondition table.
	OrderingStrict Ordering = "strict"
)

// ParseOrdering accepts "permissive", "strict", or "" (permissive).
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderingPermissive:
		return OrderingPermissive, nil
	case OrderingStrict:
		return OrderingStrict, nil
	}
	return "", fmt.Errorf("invalid ordering %q (want permissive or strict)", s)
}

type precondition struct {
	allowed     []model.AuditState
	allowAbsent bool
	hint        string
}

// strictPreconditions is checked before dispatch when ordering is strict.
var strictPreconditions = map[model.StepName]precondition{
	model.StepStart: {
		allowed:     []model.AuditState{model.StateNotStarted},
		allowAbsent: true,
		hint:        "the audit for this date has already been started",
	},
	model.StepAutoPosting: {
		allowed: []model.AuditState{model.StateInProgress},
		hint:    "start the audit before posting room revenue",
	},
	model.StepNoShow: {
		allowed: []model.AuditState{model.StateInProgress},
		hint:    "start the audit before processing no-shows",
	},
	model.StepEndOfDay: {
		allowed: []model.AuditState{model.StateInProgress},
		hint:    "the day can only be closed while the audit is in progress",
	},
}

// check returns ErrOutOfOrder (wrapped with a hint) when step may not run.
func (o Ordering) check(step model.StepName, status *model.AuditStatus) error {
	if o != OrderingStrict {
		return nil
	}
	pre, ok := strictPreconditions[step]
	if !ok {
		return nil
	}
	if status == nil {
		if pre.allowAbsent {
			return nil
		}
		return fmt.Errorf("%w: audit status unknown, %s", ErrOutOfOrder, pre.hint)
	}
	for _, s := range pre.allowed {
		if status.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: audit is %s, %s", ErrOutOfOrder, status.Status, pre.hint)
}
