// Package telemetry wires OpenTelemetry tracing for the CLI and MCP server.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Output owns a tracer provider whose finished spans are written as log
// records.
type Output struct {
	provider *sdktrace.TracerProvider
}

// New returns an Output that logs every ended span to logger at debug level,
// or at warn when the span ended with an error.
func New(logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	p := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&logSpanProcessor{logger: logger}))
	return &Output{provider: p}
}

// Tracer returns a named tracer. A nil Output falls back to the global provider.
func (o *Output) Tracer(name string) trace.Tracer {
	if o == nil || o.provider == nil {
		return otel.Tracer(name)
	}
	return o.provider.Tracer(name)
}

// Install makes the Output's provider the global one.
func (o *Output) Install() {
	if o == nil || o.provider == nil {
		return
	}
	otel.SetTracerProvider(o.provider)
}

// Close flushes and shuts down the provider.
func (o *Output) Close() {
	if o == nil || o.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = o.provider.Shutdown(ctx)
}

type logSpanProcessor struct {
	logger *slog.Logger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	args := []any{
		"span", span.Name(),
		"duration", span.EndTime().Sub(span.StartTime()).Round(time.Millisecond),
	}
	for _, kv := range span.Attributes() {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}

	level := slog.LevelDebug
	if span.Status().Code == codes.Error {
		level = slog.LevelWarn
		args = append(args, "error", span.Status().Description)
	}
	p.logger.Log(context.Background(), level, "trace", args...)
}

func (p *logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }
