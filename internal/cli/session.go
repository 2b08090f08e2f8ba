package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/nightaudit/internal/audit"
	"github.com/ppiankov/nightaudit/internal/client"
	"github.com/ppiankov/nightaudit/internal/history"
	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/telemetry"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// session bundles a controller with the journals it writes to.
type session struct {
	ctl      *workflow.Controller
	auditLog *audit.Log
	history  *history.Store
	spans    *telemetry.Output
}

// openSession builds the PMS client, journals, and controller from cfg.
// Missing journal paths disable that journal.
func openSession() (*session, error) {
	logger := slog.Default()

	c, err := client.New(cfg.API.BaseURL,
		client.WithToken(cfg.ResolveToken()),
		client.WithTenant(cfg.API.TenantID),
		client.WithTimeout(cfg.API.Timeout),
		client.WithReadRetries(cfg.API.ReadRetries),
		client.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	s := &session{}
	var recorders []workflow.Recorder
	if cfg.Journal.AuditLog != "" {
		s.auditLog, err = audit.Open(cfg.Journal.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		recorders = append(recorders, s.auditLog)
	}
	if cfg.Journal.HistoryDB != "" {
		s.history, err = history.Open(cfg.Journal.HistoryDB)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		recorders = append(recorders, s.history)
	}

	ordering, err := cfg.Ordering()
	if err != nil {
		s.close()
		return nil, err
	}
	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithOrdering(ordering),
		workflow.WithStepTimeout(cfg.Workflow.StepTimeout),
		workflow.WithRecorders(recorders...),
	}
	if traceSpans {
		s.spans = telemetry.New(logger)
		s.spans.Install()
		opts = append(opts, workflow.WithTracer(s.spans.Tracer("nightaudit/workflow")))
	}
	s.ctl = workflow.New(c, opts...)
	return s, nil
}

// load selects the --date key. A status failure is returned after the view
// is populated, so callers can still render what loaded.
func (s *session) load(ctx context.Context) (workflow.View, error) {
	key, err := processKey()
	if err != nil {
		return workflow.View{}, err
	}
	return s.ctl.Select(ctx, key)
}

// records returns the journaled steps for key, newest last.
func (s *session) records(ctx context.Context, key model.ProcessKey) []model.StepRecord {
	if s.history == nil {
		return nil
	}
	recs, err := s.history.List(ctx, key)
	if err != nil {
		slog.Warn("history read failed", "process_key", key, "error", err)
		return nil
	}
	return recs
}

func (s *session) close() {
	var errs []error
	if s.auditLog != nil {
		errs = append(errs, s.auditLog.Close())
	}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	if s.spans != nil {
		s.spans.Close()
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("closing journals", "error", err)
	}
}
