// Package observability provides the SDK's logging, metrics, and tracing:
// a fan-out slog handler with per-sink delivery policies, OTel metrics, and
// OTel tracing. All features have no-op implementations when disabled.
package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SinkPolicy decides whether a sink receives records at the given level.
type SinkPolicy func(slog.Level) bool

// AllLevels delivers every record.
func AllLevels(slog.Level) bool { return true }

// MinLevel delivers records at or above min.
func MinLevel(min slog.Level) SinkPolicy {
	return func(level slog.Level) bool { return level >= min }
}

type sinkEntry struct {
	handler slog.Handler
	policy  SinkPolicy
}

// FanoutHandler is a slog.Handler that multiplexes records to zero or more
// registered sinks, each filtered by its policy. Emission is serialized so
// interleaved goroutines produce whole records per sink.
type FanoutHandler struct {
	mu    sync.Mutex
	sinks []sinkEntry
}

// NewFanoutHandler creates a handler with no sinks. A record logged with no
// sinks registered is dropped.
func NewFanoutHandler() *FanoutHandler {
	return &FanoutHandler{}
}

// AddSink registers a sink. A nil policy means AllLevels.
func (h *FanoutHandler) AddSink(handler slog.Handler, policy SinkPolicy) {
	if handler == nil {
		return
	}
	if policy == nil {
		policy = AllLevels
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, sinkEntry{handler: handler, policy: policy})
}

// Enabled reports whether any sink would accept a record at the given level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sinks {
		if s.policy(level) && s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every matching sink. Individual sink errors
// do not stop delivery to the remaining sinks; the first error is returned.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for _, s := range h.sinks {
		if !s.policy(r.Level) || !s.handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs returns a handler whose sinks carry the given attributes.
// Sinks added afterwards to the original handler are not inherited.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := &FanoutHandler{sinks: make([]sinkEntry, 0, len(h.sinks))}
	for _, s := range h.sinks {
		next.sinks = append(next.sinks, sinkEntry{handler: s.handler.WithAttrs(attrs), policy: s.policy})
	}
	return next
}

// WithGroup returns a handler whose sinks open the given group.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := &FanoutHandler{sinks: make([]sinkEntry, 0, len(h.sinks))}
	for _, s := range h.sinks {
		next.sinks = append(next.sinks, sinkEntry{handler: s.handler.WithGroup(name), policy: s.policy})
	}
	return next
}

// LogBootstrapStart logs the start of a bootstrap attempt.
func LogBootstrapStart(logger *slog.Logger, attemptID string) {
	if logger == nil {
		return
	}
	logger.Info("bootstrap starting",
		slog.String("attempt_id", attemptID),
	)
}

// LogBootstrapComplete logs successful bootstrap completion.
func LogBootstrapComplete(logger *slog.Logger, attemptID string, durationMs float64, components int) {
	if logger == nil {
		return
	}
	logger.Info("bootstrap completed",
		slog.String("attempt_id", attemptID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("components_registered", components),
	)
}

// LogBootstrapError logs bootstrap failure.
func LogBootstrapError(logger *slog.Logger, attemptID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("bootstrap failed",
		slog.String("attempt_id", attemptID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTaskStart logs bootstrap task execution start.
func LogTaskStart(logger *slog.Logger, taskID string) {
	if logger == nil {
		return
	}
	logger.Debug("task starting",
		slog.String("task_id", taskID),
	)
}

// LogTaskComplete logs successful task completion.
func LogTaskComplete(logger *slog.Logger, taskID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("task completed",
		slog.String("task_id", taskID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTaskError logs task failure.
func LogTaskError(logger *slog.Logger, taskID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("task failed",
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
	)
}

// LogComponentError logs a single component's dispatch failure (non-fatal).
func LogComponentError(logger *slog.Logger, role string, operation string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("component failed",
		slog.String("role", role),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogEventDropped logs an event dropped before delivery (non-fatal).
func LogEventDropped(logger *slog.Logger, name string, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("event", name),
		slog.String("reason", reason),
	)
}

// LogSendError logs a realtime transport failure.
func LogSendError(logger *slog.Logger, name string, category string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("realtime send failed",
		slog.String("event", name),
		slog.String("category", category),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
