package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/nightaudit/internal/model"
)

const (
	attrProcessKey = "nightaudit.process_key"
	attrStep       = "nightaudit.step"
	attrAuditID    = "nightaudit.audit_id"

	refreshSpanName = "nightaudit.refresh"
	stepSpanPrefix  = "nightaudit.step."
)

type fetchResult struct {
	status    *model.AuditStatus
	statusErr error
	report    *model.AuditReport
	reportErr error
}

// fetch reads status and report concurrently. Neither failure affects the other.
func (c *Controller) fetch(ctx context.Context, t tag) fetchResult {
	ctx, span := c.tracer.Start(ctx, refreshSpanName, trace.WithAttributes(
		attribute.String(attrProcessKey, string(t.key)),
	))
	defer span.End()

	var (
		res fetchResult
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		st, err := c.backend.GetStatus(ctx, t.key)
		if err != nil {
			res.statusErr = err
			return
		}
		res.status = &st
	}()
	go func() {
		defer wg.Done()
		r, err := c.backend.GetReport(ctx, t.key)
		if err != nil {
			res.reportErr = err
			return
		}
		res.report = r
	}()
	wg.Wait()

	if res.statusErr != nil {
		span.RecordError(res.statusErr)
		span.SetStatus(codes.Error, strings.TrimSpace(res.statusErr.Error()))
	}
	return res
}

// applyLocked installs a fetch result into the session.
func (c *Controller) applyLocked(res fetchResult) {
	c.status, c.statusErr = res.status, res.statusErr
	if res.statusErr != nil {
		c.noticeLocked(LevelError, "", "Failed to load audit status: "+UserMessage(res.statusErr))
		c.logger.Error("audit status read failed", "process_key", c.key, "error", res.statusErr)
	} else if res.status.ID != "" {
		c.auditID = res.status.ID
	}

	switch {
	case res.reportErr == nil:
		c.report, c.reportErr = res.report, nil
	case errors.Is(res.reportErr, model.ErrNotFound):
		c.report, c.reportErr = nil, nil
	default:
		c.report, c.reportErr = nil, res.reportErr
		c.logger.Warn("audit report read failed", "process_key", c.key, "error", res.reportErr)
	}
}

func (c *Controller) startStepSpan(ctx context.Context, step model.StepName, key model.ProcessKey, auditID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(attrProcessKey, string(key)),
		attribute.String(attrStep, string(step)),
	}
	if auditID != "" {
		attrs = append(attrs, attribute.String(attrAuditID, auditID))
	}
	return c.tracer.Start(ctx, stepSpanPrefix+string(step), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	span.End()
}

func successMessage(res model.StepResult) string {
	switch v := res.(type) {
	case model.StartResult:
		return "Night audit started"
	case model.AutoPostingResult:
		return fmt.Sprintf("Posted %d room charges totalling %s", v.PostedCount, model.FormatMoney(v.TotalAmountPosted))
	case model.NoShowResult:
		return fmt.Sprintf("Processed %d no-shows, charges %s", v.NoShowsProcessed, model.FormatMoney(v.TotalNoShowCharges))
	case model.EndOfDayResult:
		return "Day closed, revenue " + model.FormatMoney(v.Summary.TotalRevenue)
	}
	return "Step completed"
}
