package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records SDK metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordBootstrap records a bootstrap attempt completion.
	RecordBootstrap(ctx context.Context, success bool, duration time.Duration)

	// RecordTask records a bootstrap task execution with its duration and error status.
	RecordTask(ctx context.Context, taskID string, duration time.Duration, err error)

	// RecordDispatch records one component invocation for an operation.
	RecordDispatch(ctx context.Context, operation string, role string, err error)

	// RecordSend records a realtime send attempt.
	RecordSend(ctx context.Context, category string, duration time.Duration, err error)

	// RecordRetry records an identity retry send being issued.
	RecordRetry(ctx context.Context, category string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	bootstrapRuns    metric.Int64Counter
	bootstrapLatency metric.Float64Histogram
	taskExecutions   metric.Int64Counter
	taskLatency      metric.Float64Histogram
	taskErrors       metric.Int64Counter
	dispatches       metric.Int64Counter
	dispatchErrors   metric.Int64Counter
	sends            metric.Int64Counter
	sendLatency      metric.Float64Histogram
	sendErrors       metric.Int64Counter
	retries          metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("optimove")

	bootstrapRuns, err := meter.Int64Counter("optimove.bootstrap.runs",
		metric.WithDescription("Number of bootstrap attempts"),
	)
	if err != nil {
		return nil, err
	}

	bootstrapLatency, err := meter.Float64Histogram("optimove.bootstrap.latency_ms",
		metric.WithDescription("Bootstrap attempt latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	taskExecutions, err := meter.Int64Counter("optimove.task.executions",
		metric.WithDescription("Number of bootstrap task executions"),
	)
	if err != nil {
		return nil, err
	}

	taskLatency, err := meter.Float64Histogram("optimove.task.latency_ms",
		metric.WithDescription("Bootstrap task latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	taskErrors, err := meter.Int64Counter("optimove.task.errors",
		metric.WithDescription("Number of bootstrap task failures"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("optimove.dispatch.invocations",
		metric.WithDescription("Number of component invocations"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("optimove.dispatch.errors",
		metric.WithDescription("Number of component invocation failures"),
	)
	if err != nil {
		return nil, err
	}

	sends, err := meter.Int64Counter("optimove.realtime.sends",
		metric.WithDescription("Number of realtime send attempts"),
	)
	if err != nil {
		return nil, err
	}

	sendLatency, err := meter.Float64Histogram("optimove.realtime.send_latency_ms",
		metric.WithDescription("Realtime send latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sendErrors, err := meter.Int64Counter("optimove.realtime.send_errors",
		metric.WithDescription("Number of realtime transport failures"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("optimove.realtime.retries",
		metric.WithDescription("Number of identity retry sends issued"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		bootstrapRuns:    bootstrapRuns,
		bootstrapLatency: bootstrapLatency,
		taskExecutions:   taskExecutions,
		taskLatency:      taskLatency,
		taskErrors:       taskErrors,
		dispatches:       dispatches,
		dispatchErrors:   dispatchErrors,
		sends:            sends,
		sendLatency:      sendLatency,
		sendErrors:       sendErrors,
		retries:          retries,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordBootstrap records a bootstrap attempt.
func (m *otelMetrics) RecordBootstrap(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.bootstrapRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.bootstrapLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordTask records a bootstrap task execution.
func (m *otelMetrics) RecordTask(ctx context.Context, taskID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("task_id", taskID),
	}

	m.taskExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.taskLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.taskErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDispatch records a component invocation.
func (m *otelMetrics) RecordDispatch(ctx context.Context, operation string, role string, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("role", role),
	}

	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordSend records a realtime send attempt.
func (m *otelMetrics) RecordSend(ctx context.Context, category string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("category", category),
	}

	m.sends.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sendLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.sendErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRetry records an identity retry send.
func (m *otelMetrics) RecordRetry(ctx context.Context, category string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
	))
}
