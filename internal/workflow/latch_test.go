package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/nightaudit/internal/model"
)

func TestLatchStates(t *testing.T) {
	var zero Latch
	if zero.Busy() || zero.Phase() != PhaseIdle {
		t.Fatalf("zero latch should be idle, got %s", zero)
	}
	if l := loading(); !l.Busy() || l.Step() != "" {
		t.Errorf("loading latch: busy=%v step=%q", l.Busy(), l.Step())
	}
	r := running(model.StepNoShow)
	if !r.Busy() || r.Step() != model.StepNoShow {
		t.Errorf("running latch: busy=%v step=%q", r.Busy(), r.Step())
	}
	if got := r.String(); got != "running(no_show)" {
		t.Errorf("String() = %q", got)
	}
}

func TestPhaseMarshalsByName(t *testing.T) {
	b, err := json.Marshal(struct {
		P Phase `json:"p"`
	}{PhaseLoading})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"p":"loading"}` {
		t.Errorf("got %s", b)
	}
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    Ordering
		wantErr bool
	}{
		{"", OrderingPermissive, false},
		{"permissive", OrderingPermissive, false},
		{" Strict ", OrderingStrict, false},
		{"loose", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOrdering(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrdering(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrdering(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrictPreconditionTable(t *testing.T) {
	st := func(s model.AuditState) *model.AuditStatus { return &model.AuditStatus{Status: s} }
	tests := []struct {
		step   model.StepName
		status *model.AuditStatus
		ok     bool
	}{
		{model.StepStart, nil, true},
		{model.StepStart, st(model.StateNotStarted), true},
		{model.StepStart, st(model.StateInProgress), false},
		{model.StepAutoPosting, st(model.StateInProgress), true},
		{model.StepAutoPosting, st(model.StateNotStarted), false},
		{model.StepNoShow, nil, false},
		{model.StepEndOfDay, st(model.StateCompleted), false},
		{model.StepEndOfDay, st(model.StateInProgress), true},
	}
	for _, tt := range tests {
		err := OrderingStrict.check(tt.step, tt.status)
		if tt.ok && err != nil {
			t.Errorf("%s with %v: unexpected %v", tt.step, tt.status, err)
		}
		if !tt.ok && !errors.Is(err, ErrOutOfOrder) {
			t.Errorf("%s with %v: want ErrOutOfOrder, got %v", tt.step, tt.status, err)
		}
		if err := OrderingPermissive.check(tt.step, tt.status); err != nil {
			t.Errorf("permissive %s: %v", tt.step, err)
		}
	}
}

func TestViewState(t *testing.T) {
	inProgress := &model.AuditStatus{Status: model.StateInProgress}
	tests := []struct {
		name string
		view View
		want SessionState
	}{
		{"empty", View{}, SessionIdle},
		{"status in progress", View{Status: inProgress}, SessionAuditStarted},
		{"start result", View{Results: Results{Start: &model.StartResult{}}}, SessionAuditStarted},
		{"posted", View{Results: Results{AutoPosting: &model.AutoPostingResult{}}}, SessionRoomRevenuePosted},
		{"no-shows", View{Results: Results{AutoPosting: &model.AutoPostingResult{}, NoShow: &model.NoShowResult{}}}, SessionNoShowsProcessed},
		{"close result without completed status", View{Status: inProgress, Results: Results{EndOfDay: &model.EndOfDayResult{}}}, SessionAuditStarted},
		{"completed", View{Status: &model.AuditStatus{Status: model.StateCompleted}}, SessionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOccupancyDisplay(t *testing.T) {
	report := func(total, occupied int) *model.AuditReport {
		return &model.AuditReport{Audit: &model.AuditSummary{TotalRooms: total, OccupiedRooms: occupied}}
	}
	tests := []struct {
		name   string
		report *model.AuditReport
		want   string
	}{
		{"no report", nil, OccupancyPlaceholder},
		{"no summary", &model.AuditReport{}, OccupancyPlaceholder},
		{"zero rooms", report(0, 0), OccupancyPlaceholder},
		{"negative rooms", report(-3, 1), OccupancyPlaceholder},
		{"full", report(10, 10), "100.0%"},
		{"thirds", report(3, 1), "33.3%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := View{Report: tt.report}
			if got := v.OccupancyDisplay(); got != tt.want {
				t.Errorf("OccupancyDisplay() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultsPutAndGet(t *testing.T) {
	var r Results
	r.put(model.NoShowResult{NoShowsProcessed: 3, TotalNoShowCharges: decimal.NewFromInt(90)})
	if !r.Has(model.StepNoShow) || r.Has(model.StepStart) {
		t.Fatalf("unexpected Has results: %+v", r)
	}
	c := r.clone()
	c.NoShow.NoShowsProcessed = 99
	if r.NoShow.NoShowsProcessed != 3 {
		t.Error("clone aliases the original")
	}
	got, ok := r.Get(model.StepNoShow)
	if !ok || got.Step() != model.StepNoShow {
		t.Errorf("Get = %v, %v", got, ok)
	}
}

func TestViewErrorText(t *testing.T) {
	withNotice := func(level Level, msg string) View {
		return View{Notices: []Notice{{Level: LevelInfo, Message: "Night audit started"}, {Level: level, Message: msg}}}
	}
	tests := []struct {
		name string
		view View
		err  error
		want string
	}{
		{"step failure uses notice", withNotice(LevelError, "Failed to close day: locked"),
			&StepError{Step: model.StepEndOfDay, Err: errors.New("pms api returned 409: locked")}, "Failed to close day: locked"},
		{"missing audit id uses notice", withNotice(LevelError, "Audit ID not found. Please start the audit first."),
			ErrNoAuditID, "Audit ID not found. Please start the audit first."},
		{"out of order uses notice", withNotice(LevelError, "Process no-shows rejected: step out of order"),
			fmt.Errorf("%w: requires in_progress", ErrOutOfOrder), "Process no-shows rejected: step out of order"},
		{"out of order without notice", View{},
			fmt.Errorf("%w: requires in_progress", ErrOutOfOrder), "step out of order: requires in_progress"},
		{"info notice is not an error", withNotice(LevelInfo, "Posted"),
			&StepError{Step: model.StepAutoPosting, Err: errors.New("boom")}, "Post room revenue failed: boom"},
		{"busy ignores notices", withNotice(LevelError, "older failure"), ErrBusy, ErrBusy.Error()},
		{"timeout", View{}, context.DeadlineExceeded, "request timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.ErrorText(tt.err); got != tt.want {
				t.Errorf("ErrorText() = %q, want %q", got, tt.want)
			}
		})
	}
}
