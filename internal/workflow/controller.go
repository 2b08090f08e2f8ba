// Package workflow drives the four-step night audit against a PMS backend.
//
// A Controller owns one session: the selected audit date, the last status
// and report read for it, the last result of each step, and a single latch
// that serializes every load and step call. Every request is tagged with the
// date and session generation it was issued for; responses that arrive after
// the session moved on are discarded.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/nightaudit/internal/model"
)

const maxNotices = 50

// Backend is the set of remote capabilities the controller consumes.
type Backend interface {
	GetStatus(ctx context.Context, key model.ProcessKey) (model.AuditStatus, error)
	GetReport(ctx context.Context, key model.ProcessKey) (*model.AuditReport, error)
	StartAudit(ctx context.Context, key model.ProcessKey) (model.StartResult, error)
	PostRoomRevenue(ctx context.Context, key model.ProcessKey) (model.AutoPostingResult, error)
	ProcessNoShows(ctx context.Context, key model.ProcessKey, chargeFee bool) (model.NoShowResult, error)
	CloseDay(ctx context.Context, auditID string) (model.EndOfDayResult, error)
}

// Recorder receives a record of every step invocation.
type Recorder interface {
	RecordStep(ctx context.Context, rec model.StepRecord) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithTracer sets the tracer used for step and refresh spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithRecorders adds step journals.
func WithRecorders(rs ...Recorder) Option {
	return func(c *Controller) {
		for _, r := range rs {
			if r != nil {
				c.recorders = append(c.recorders, r)
			}
		}
	}
}

// WithOrdering sets the initial ordering policy.
func WithOrdering(o Ordering) Option {
	return func(c *Controller) { c.ordering = o }
}

// WithStepTimeout bounds each step's remote call. Zero means no bound.
func WithStepTimeout(d time.Duration) Option {
	return func(c *Controller) { c.stepTimeout = d }
}

// WithSession sets the session id stamped on step records.
func WithSession(id string) Option {
	return func(c *Controller) { c.session = id }
}

// WithClock overrides time.Now for notices and records.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// tag identifies the session a request was issued for.
type tag struct {
	key model.ProcessKey
	gen uint64
}

// Controller is the night audit workflow orchestrator. It is safe for
// concurrent use; no lock is held across remote calls.
type Controller struct {
	backend     Backend
	logger      *slog.Logger
	tracer      trace.Tracer
	recorders   []Recorder
	stepTimeout time.Duration
	session     string
	now         func() time.Time

	mu        sync.Mutex
	ordering  Ordering
	key       model.ProcessKey
	gen       uint64
	latch     Latch
	cancel    context.CancelFunc
	status    *model.AuditStatus
	statusErr error
	report    *model.AuditReport
	reportErr error
	auditID   string
	results   Results
	notices   []Notice
	subs      map[int]func(View)
	nextSub   int
}

// New creates a Controller over backend.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		logger:   slog.Default(),
		ordering: OrderingPermissive,
		now:      time.Now,
		subs:     make(map[int]func(View)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("nightaudit/workflow")
	}
	if c.session == "" {
		c.session = uuid.NewString()
	}
	return c
}

// Session returns the id stamped on this controller's step records.
func (c *Controller) Session() string { return c.session }

// SetOrdering swaps the ordering policy. Calls already dispatched are unaffected.
func (c *Controller) SetOrdering(o Ordering) {
	c.mu.Lock()
	c.ordering = o
	c.mu.Unlock()
	c.publish()
}

// Subscribe registers fn to receive a View after every state change.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// View returns a snapshot of the current session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Select switches the session to key and loads its status and report.
// Switching fully replaces status, report, results, audit id and notices.
// A status read failure is returned and recorded on the view; a report
// failure never is.
func (c *Controller) Select(ctx context.Context, key model.ProcessKey) (View, error) {
	if key == "" {
		return c.View(), ErrNoProcessKey
	}

	c.mu.Lock()
	if c.latch.Busy() {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrBusy
	}
	c.gen++
	c.key = key
	c.status, c.statusErr = nil, nil
	c.report, c.reportErr = nil, nil
	c.auditID = ""
	c.results = Results{}
	c.notices = nil
	return c.load(ctx)
}

// Refresh reloads status and report for the selected key, keeping results.
func (c *Controller) Refresh(ctx context.Context) (View, error) {
	c.mu.Lock()
	if c.key == "" {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrNoProcessKey
	}
	if c.latch.Busy() {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrBusy
	}
	return c.load(ctx)
}

// load runs a fetch under the Loading latch. Called with c.mu held; returns
// with it released.
func (c *Controller) load(ctx context.Context) (View, error) {
	t := c.tagLocked()
	c.latch = loading()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	c.publish()
	defer cancel()

	res := c.fetch(ctx, t)

	c.mu.Lock()
	if !c.matchesLocked(t) {
		v := c.viewLocked()
		c.mu.Unlock()
		c.logger.Warn("discarding stale audit status", "process_key", t.key)
		return v, ErrStale
	}
	c.applyLocked(res)
	c.latch = idle()
	c.cancel = nil
	v := c.viewLocked()
	c.mu.Unlock()
	c.publish()
	return v, res.statusErr
}

// Abandon releases a latch held by a hung load or step. The in-flight
// request is cancelled and any late response is discarded. It reports
// whether anything was abandoned.
func (c *Controller) Abandon() bool {
	c.mu.Lock()
	if !c.latch.Busy() {
		c.mu.Unlock()
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	prev := c.latch
	c.gen++
	c.latch = idle()
	if prev.Phase() == PhaseRunning {
		c.noticeLocked(LevelWarn, prev.Step(),
			prev.Step().Title()+" was abandoned; refresh the status before running it again")
	} else {
		c.noticeLocked(LevelWarn, "", "Loading was abandoned")
	}
	c.mu.Unlock()
	c.logger.Warn("abandoned in-flight operation", "latch", prev.String())
	c.publish()
	return true
}

// Start opens the night audit for the selected date.
func (c *Controller) Start(ctx context.Context) (model.StartResult, error) {
	return runStep(ctx, c, model.StepStart, func(ctx context.Context, key model.ProcessKey, _ string) (model.StartResult, error) {
		return c.backend.StartAudit(ctx, key)
	})
}

// PostRoomRevenue posts room charges for the selected date.
func (c *Controller) PostRoomRevenue(ctx context.Context) (model.AutoPostingResult, error) {
	return runStep(ctx, c, model.StepAutoPosting, func(ctx context.Context, key model.ProcessKey, _ string) (model.AutoPostingResult, error) {
		return c.backend.PostRoomRevenue(ctx, key)
	})
}

// ProcessNoShows processes no-shows for the selected date.
func (c *Controller) ProcessNoShows(ctx context.Context, chargeFee bool) (model.NoShowResult, error) {
	return runStep(ctx, c, model.StepNoShow, func(ctx context.Context, key model.ProcessKey, _ string) (model.NoShowResult, error) {
		return c.backend.ProcessNoShows(ctx, key, chargeFee)
	})
}

// CloseDay closes the audit. It fails with ErrNoAuditID, without any
// network call, when the session has no audit id.
func (c *Controller) CloseDay(ctx context.Context) (model.EndOfDayResult, error) {
	return runStep(ctx, c, model.StepEndOfDay, func(ctx context.Context, _ model.ProcessKey, auditID string) (model.EndOfDayResult, error) {
		return c.backend.CloseDay(ctx, auditID)
	})
}

// Run dispatches step by name. chargeFee only applies to the no-show step.
func (c *Controller) Run(ctx context.Context, step model.StepName, chargeFee bool) (model.StepResult, error) {
	var (
		res model.StepResult
		err error
	)
	switch step {
	case model.StepStart:
		res, err = c.Start(ctx)
	case model.StepAutoPosting:
		res, err = c.PostRoomRevenue(ctx)
	case model.StepNoShow:
		res, err = c.ProcessNoShows(ctx, chargeFee)
	case model.StepEndOfDay:
		res, err = c.CloseDay(ctx)
	default:
		return nil, errors.New("unknown step " + string(step))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// runStep performs one step: guard, one remote call, store, one refresh.
func runStep[T model.StepResult](ctx context.Context, c *Controller, step model.StepName, call func(ctx context.Context, key model.ProcessKey, auditID string) (T, error)) (T, error) {
	var zero T
	started := c.now()

	c.mu.Lock()
	if c.latch.Busy() {
		c.mu.Unlock()
		c.logger.Debug("step ignored, latch busy", "step", step)
		return zero, ErrBusy
	}
	if c.key == "" {
		c.mu.Unlock()
		return zero, ErrNoProcessKey
	}
	key, auditID := c.key, c.auditID

	if step == model.StepEndOfDay && auditID == "" {
		c.noticeLocked(LevelError, step, "Audit ID not found. Please start the audit first.")
		c.mu.Unlock()
		c.publish()
		c.record(ctx, model.StepRecord{ProcessKey: key, Step: step, Outcome: model.OutcomeRejected, Error: ErrNoAuditID.Error(), StartedAt: started})
		return zero, ErrNoAuditID
	}
	if err := c.ordering.check(step, c.status); err != nil {
		c.noticeLocked(LevelError, step, step.Title()+" rejected: "+err.Error())
		c.mu.Unlock()
		c.publish()
		c.record(ctx, model.StepRecord{ProcessKey: key, Step: step, Outcome: model.OutcomeRejected, AuditID: auditID, Error: err.Error(), StartedAt: started})
		return zero, err
	}

	t := c.tagLocked()
	c.latch = running(step)
	callCtx, cancel := c.stepContext(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	c.publish()

	spanCtx, span := c.startStepSpan(callCtx, step, key, auditID)
	res, err := call(spanCtx, key, auditID)
	endSpan(span, err)
	cancel()

	rec := model.StepRecord{
		ProcessKey: key,
		Step:       step,
		AuditID:    auditID,
		StartedAt:  started,
		Duration:   c.now().Sub(started),
	}
	if err == nil {
		rec.Payload, _ = json.Marshal(res)
		if s, ok := any(res).(model.StartResult); ok && s.AuditID != "" {
			rec.AuditID = s.AuditID
		}
	} else {
		rec.Error = err.Error()
	}

	c.mu.Lock()
	if !c.matchesLocked(t) {
		c.mu.Unlock()
		rec.Outcome = model.OutcomeStale
		c.record(ctx, rec)
		c.logger.Warn("discarding stale step response", "step", step, "process_key", key, "error", err)
		return zero, ErrStale
	}
	c.cancel = nil

	if err != nil {
		c.latch = idle()
		c.noticeLocked(LevelError, step, "Failed to "+lowerFirst(step.Title())+": "+UserMessage(err))
		c.mu.Unlock()
		c.publish()
		rec.Outcome = model.OutcomeFailed
		c.record(ctx, rec)
		c.logger.Error("night audit step failed", "step", step, "process_key", key, "error", err)
		return zero, &StepError{Step: step, Err: err}
	}

	c.results.put(res)
	if rec.AuditID != "" {
		c.auditID = rec.AuditID
	}
	c.noticeLocked(LevelInfo, step, successMessage(res))
	c.latch = loading()
	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	c.cancel = cancelRefresh
	c.mu.Unlock()
	c.publish()

	rec.Outcome = model.OutcomeSucceeded
	c.record(ctx, rec)
	c.logger.Info("night audit step completed", "step", step, "process_key", key, "duration", rec.Duration)

	snap := c.fetch(refreshCtx, t)
	cancelRefresh()

	c.mu.Lock()
	if c.matchesLocked(t) {
		c.applyLocked(snap)
		c.latch = idle()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.publish()
	return res, nil
}

func (c *Controller) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.stepTimeout > 0 {
		return context.WithTimeout(ctx, c.stepTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) tagLocked() tag {
	return tag{key: c.key, gen: c.gen}
}

func (c *Controller) matchesLocked(t tag) bool {
	return c.key == t.key && c.gen == t.gen
}

func (c *Controller) noticeLocked(level Level, step model.StepName, msg string) {
	c.notices = append(c.notices, Notice{Level: level, Step: step, Message: msg, At: c.now()})
	if len(c.notices) > maxNotices {
		c.notices = c.notices[len(c.notices)-maxNotices:]
	}
}

func (c *Controller) record(ctx context.Context, rec model.StepRecord) {
	if len(c.recorders) == 0 {
		return
	}
	rec.Session = c.session
	ctx = context.WithoutCancel(ctx)
	for _, r := range c.recorders {
		if err := r.RecordStep(ctx, rec); err != nil {
			c.logger.Warn("step journal write failed", "step", rec.Step, "error", err)
		}
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	if len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	v := c.viewLocked()
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Controller) viewLocked() View {
	v := View{
		ProcessKey:  c.key,
		Phase:       c.latch.Phase(),
		RunningStep: c.latch.Step(),
		Disabled:    c.latch.Busy(),
		AuditID:     c.auditID,
		Ordering:    c.ordering,
		Results:     c.results.clone(),
	}
	if c.status != nil {
		st := *c.status
		v.Status = &st
	}
	if c.statusErr != nil {
		v.StatusError = UserMessage(c.statusErr)
	}
	if c.report != nil {
		r := *c.report
		if r.Audit != nil {
			a := *r.Audit
			r.Audit = &a
		}
		r.BookingsByStatus = append([]model.BookingStatusCount(nil), r.BookingsByStatus...)
		v.Report = &r
	}
	if c.reportErr != nil {
		v.ReportError = UserMessage(c.reportErr)
	}
	if len(c.notices) > 0 {
		v.Notices = append([]Notice(nil), c.notices...)
	}

	for _, step := range model.Steps() {
		sv := StepView{Name: step, Title: step.Title(), Completed: c.results.Has(step)}
		if step == model.StepEndOfDay && c.status != nil && c.status.Status == model.StateCompleted {
			sv.Completed = true
		}
		sv.Enabled = c.key != "" && !c.latch.Busy() && c.ordering.check(step, c.status) == nil
		v.Steps = append(v.Steps, sv)
	}
	return v
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
