package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of auditd spans.
const TracerName = "github.com/felixgeelhaar/auditd"

// StartRunSpan creates the span covering one audit run.
//
// Usage:
//
//	ctx, span := telemetry.StartRunSpan(ctx, tracer, "acme", runID)
//	defer span.End()
func StartRunSpan(ctx context.Context, tracer trace.Tracer, slug, runID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "audit.run", trace.WithSpanKind(trace.SpanKindServer))

	span.SetAttributes(
		attribute.String("site", slug),
		attribute.String("run_id", runID),
		attribute.String("component", "audit"),
	)

	return ctx, span
}

// RecordExit attaches the task's process id, exit code and wall time.
func RecordExit(span trace.Span, pid, code int, d time.Duration) {
	span.SetAttributes(
		attribute.Int("pid", pid),
		attribute.Int("exit_code", code),
		attribute.Int64("duration_ms", d.Milliseconds()),
	)
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
