package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/nightaudit/internal/model"
)

// fakeBackend records calls and serves a tiny in-memory audit per date.
type fakeBackend struct {
	mu     sync.Mutex
	calls  map[string]int
	audits map[model.ProcessKey]*fakeAudit

	// Hooks override default behaviour when set.
	statusFn func(ctx context.Context, key model.ProcessKey) (model.AuditStatus, error)
	reportFn func(ctx context.Context, key model.ProcessKey) (*model.AuditReport, error)
	startFn  func(ctx context.Context, key model.ProcessKey) (model.StartResult, error)
	postFn   func(ctx context.Context, key model.ProcessKey) (model.AutoPostingResult, error)
	noShowFn func(ctx context.Context, key model.ProcessKey, fee bool) (model.NoShowResult, error)
	closeFn  func(ctx context.Context, id string) (model.EndOfDayResult, error)
}

type fakeAudit struct {
	id     string
	status model.AuditState
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:  make(map[string]int),
		audits: make(map[model.ProcessKey]*fakeAudit),
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) stepCalls() int {
	return f.count("start") + f.count("post") + f.count("no_show") + f.count("close")
}

func (f *fakeBackend) inc(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) GetStatus(ctx context.Context, key model.ProcessKey) (model.AuditStatus, error) {
	f.inc("status")
	if f.statusFn != nil {
		return f.statusFn(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.audits[key]
	if !ok {
		return model.AuditStatus{Status: model.StateNotStarted}, nil
	}
	return model.AuditStatus{ID: a.id, Status: a.status}, nil
}

func (f *fakeBackend) GetReport(ctx context.Context, key model.ProcessKey) (*model.AuditReport, error) {
	f.inc("report")
	if f.reportFn != nil {
		return f.reportFn(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.audits[key]; !ok {
		return nil, model.ErrNotFound
	}
	return &model.AuditReport{
		Audit: &model.AuditSummary{TotalRooms: 40, OccupiedRooms: 30, TotalRevenue: decimal.RequireFromString("4500")},
		BookingsByStatus: []model.BookingStatusCount{
			{Status: "checked_in", Count: 30, Revenue: decimal.RequireFromString("4500")},
		},
	}, nil
}

func (f *fakeBackend) StartAudit(ctx context.Context, key model.ProcessKey) (model.StartResult, error) {
	f.inc("start")
	if f.startFn != nil {
		return f.startFn(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "audit-" + string(key)
	f.audits[key] = &fakeAudit{id: id, status: model.StateInProgress}
	return model.StartResult{
		AuditID: id,
		Statistics: model.StartStatistics{
			TotalRooms:   40,
			OccupancyPct: decimal.RequireFromString("75"),
			TotalRevenue: decimal.RequireFromString("4500"),
		},
	}, nil
}

func (f *fakeBackend) PostRoomRevenue(ctx context.Context, key model.ProcessKey) (model.AutoPostingResult, error) {
	f.inc("post")
	if f.postFn != nil {
		return f.postFn(ctx, key)
	}
	return model.AutoPostingResult{PostedCount: 30, TotalAmountPosted: decimal.RequireFromString("4500")}, nil
}

func (f *fakeBackend) ProcessNoShows(ctx context.Context, key model.ProcessKey, fee bool) (model.NoShowResult, error) {
	f.inc("no_show")
	if f.noShowFn != nil {
		return f.noShowFn(ctx, key, fee)
	}
	charges := decimal.Zero
	if fee {
		charges = decimal.RequireFromString("300")
	}
	return model.NoShowResult{NoShowsProcessed: 2, TotalNoShowCharges: charges}, nil
}

func (f *fakeBackend) CloseDay(ctx context.Context, id string) (model.EndOfDayResult, error) {
	f.inc("close")
	if f.closeFn != nil {
		return f.closeFn(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.audits {
		if a.id == id {
			a.status = model.StateCompleted
			return model.EndOfDayResult{Summary: model.CloseSummary{
				TotalRevenue:  decimal.RequireFromString("4800"),
				NoShows:       2,
				OccupiedRooms: 30,
			}}, nil
		}
	}
	return model.EndOfDayResult{}, errors.New("audit not found")
}

// memRecorder collects step records.
type memRecorder struct {
	mu      sync.Mutex
	records []model.StepRecord
	err     error
}

func (m *memRecorder) RecordStep(_ context.Context, rec model.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *memRecorder) all() []model.StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StepRecord(nil), m.records...)
}

// userErr mimics a backend error carrying an operator message.
type userErr struct{ msg string }

func (e userErr) Error() string       { return "pms api returned 500: " + e.msg }
func (e userErr) UserMessage() string { return e.msg }
