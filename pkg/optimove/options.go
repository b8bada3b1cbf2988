package optimove

import (
	"log/slog"

	"github.com/optimove/optimove-go/pkg/optimove/observability"
	"github.com/optimove/optimove-go/pkg/optimove/realtime"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// settings collects construction-time configuration for an Optimove instance.
type settings struct {
	logger    *slog.Logger
	fanout    *observability.FanoutHandler
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	store     storage.Store
	transport realtime.Transport
	trackSink TrackSink
	factory   Factory
	rtOpts    realtime.Options
	workers   int
	noEnv     bool
}

// Option configures an Optimove instance at construction time.
type Option func(*settings)

// WithLogger replaces the default fan-out logger entirely.
// Mutually exclusive with WithSink.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSink adds a log sink to the default fan-out logger. A nil policy
// delivers all levels. Multiple sinks may be added.
func WithSink(handler slog.Handler, policy observability.SinkPolicy) Option {
	return func(s *settings) {
		s.fanout.AddSink(handler, policy)
	}
}

// WithMetrics supplies a metrics recorder. Defaults to no-op.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(s *settings) {
		s.metrics = metrics
	}
}

// WithSpans supplies a span manager. Defaults to no-op.
func WithSpans(spans observability.SpanManager) Option {
	return func(s *settings) {
		s.spans = spans
	}
}

// WithSettingsStore supplies the persistent settings store. Defaults to an
// in-memory store, which loses identity and retry flags on restart; use
// storage.NewSQLiteStore for durable installs.
func WithSettingsStore(store storage.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithTransport supplies the realtime gateway transport. Without it the
// realtime component is not built even if the tenant enables realtime.
func WithTransport(transport realtime.Transport) Option {
	return func(s *settings) {
		s.transport = transport
	}
}

// WithTrackSink supplies the tracking channel sink. Defaults to a sink that
// logs flushed events at debug level.
func WithTrackSink(sink TrackSink) Option {
	return func(s *settings) {
		s.trackSink = sink
	}
}

// WithFactory replaces the default component factory.
func WithFactory(factory Factory) Option {
	return func(s *settings) {
		s.factory = factory
	}
}

// WithRealtimeOptions tunes the realtime engine.
func WithRealtimeOptions(opts realtime.Options) Option {
	return func(s *settings) {
		s.rtOpts = opts
	}
}

// WithWorkers bounds bootstrap task parallelism.
func WithWorkers(workers int) Option {
	return func(s *settings) {
		s.workers = workers
	}
}

// WithoutEnvOverrides disables OPTIMOVE_* environment variable overrides of
// the fetched configuration.
func WithoutEnvOverrides() Option {
	return func(s *settings) {
		s.noEnv = true
	}
}
