package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the SDK tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("optimove")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartBootstrapSpan starts a span for an entire bootstrap attempt.
	StartBootstrapSpan(ctx context.Context, attemptID string) (context.Context, trace.Span)

	// StartTaskSpan starts a span for a bootstrap task execution.
	// The task span should be a child of the bootstrap span.
	StartTaskSpan(ctx context.Context, taskID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartBootstrapSpan starts a span for a bootstrap attempt.
func (m *otelSpanManager) StartBootstrapSpan(ctx context.Context, attemptID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "optimove.bootstrap",
		trace.WithAttributes(
			attribute.String("attempt.id", attemptID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartTaskSpan starts a span for a bootstrap task.
func (m *otelSpanManager) StartTaskSpan(ctx context.Context, taskID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "optimove.task."+taskID,
		trace.WithAttributes(
			attribute.String("task.id", taskID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
