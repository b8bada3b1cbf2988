package optimove

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/optimove/optimove-go/pkg/optimove/component"
	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/observability"
	"github.com/optimove/optimove-go/pkg/optimove/realtime"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// TrackSink receives flushed tracking events. The HTTP implementation lives
// with the host application; the default sink logs at debug level.
type TrackSink interface {
	// Track delivers a batch of validated events to the tracking backend.
	Track(ctx context.Context, events []event.Decorated) error
}

// Dependencies is everything a factory may wire into its components.
type Dependencies struct {
	Config          *config.Configuration
	ConfigStore     *config.Store
	Settings        storage.Store
	Logger          *slog.Logger
	Metrics         observability.MetricsRecorder
	Transport       realtime.Transport
	TrackSink       TrackSink
	RealtimeOptions realtime.Options
}

// Factory builds the component set during initialization. Components are
// registered in the order returned.
type Factory interface {
	Build(ctx context.Context, deps Dependencies) ([]component.Component, error)
}

// defaultFactory builds the standard component set: tracking, realtime when
// the tenant enables it and a transport is available, and push.
type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, deps Dependencies) ([]component.Component, error) {
	components := []component.Component{
		newTrackingComponent(deps.TrackSink, deps.Logger),
	}

	if deps.Config.RealtimeEnabled() && deps.Transport != nil {
		engine, err := realtime.NewEngine(deps.ConfigStore, deps.Settings, deps.Transport, deps.Logger, deps.Metrics, deps.RealtimeOptions)
		if err != nil {
			return components, err
		}
		components = append(components, &realtimeComponent{engine: engine})
	}

	components = append(components, &pushComponent{settings: deps.Settings, logger: deps.Logger})
	return components, nil
}

// realtimeComponent forwards operations to the realtime engine. Reported
// events request identity retries so the gateway observes identity updates
// before the events that follow them.
type realtimeComponent struct {
	engine *realtime.Engine
}

func (*realtimeComponent) Role() component.Role { return component.RoleRealtime }

func (c *realtimeComponent) HandleOperation(ctx context.Context, op component.Operation) error {
	switch o := op.(type) {
	case component.ReportOperation:
		var errs []error
		for _, evt := range o.Events {
			if err := c.engine.Report(ctx, evt, true); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case component.ReportScreenOperation:
		return c.engine.Report(ctx, o.Event(), true)
	case component.SetUserIDOperation:
		return c.engine.SetUserID(ctx, o.UserID)
	case component.SetUserEmailOperation:
		return c.engine.SetUserEmail(ctx, o.Email)
	case component.DispatchNowOperation:
		// Realtime sends as events arrive; there is nothing to flush.
		return nil
	}
	return nil
}

// Close stops the engine's send queue.
func (c *realtimeComponent) Close() error {
	return c.engine.Close()
}

// trackingComponent buffers decorated events and flushes them to the track
// sink on DispatchNow.
type trackingComponent struct {
	sink   TrackSink
	logger *slog.Logger

	mu     sync.Mutex
	buffer []event.Decorated
}

func newTrackingComponent(sink TrackSink, logger *slog.Logger) *trackingComponent {
	if sink == nil {
		sink = &logTrackSink{logger: logger}
	}
	return &trackingComponent{sink: sink, logger: logger}
}

func (*trackingComponent) Role() component.Role { return component.RoleTracking }

func (c *trackingComponent) ConsumeWire(ctx context.Context, events []event.Decorated) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = append(c.buffer, events...)
	return nil
}

func (c *trackingComponent) HandleOperation(ctx context.Context, op component.Operation) error {
	if _, ok := op.(component.DispatchNowOperation); !ok {
		return nil
	}
	return c.flush(ctx)
}

func (c *trackingComponent) flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := c.sink.Track(ctx, batch); err != nil {
		// Restore the batch so a later flush can retry it.
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Buffered returns the number of events awaiting flush.
func (c *trackingComponent) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// logTrackSink logs flushed batches instead of delivering them.
type logTrackSink struct {
	logger *slog.Logger
}

func (s *logTrackSink) Track(ctx context.Context, events []event.Decorated) error {
	if s.logger == nil {
		return nil
	}
	for _, evt := range events {
		s.logger.Debug("track event",
			slog.String("event", evt.Name),
			slog.String("instance_id", evt.InstanceID),
		)
	}
	return nil
}

// pushComponent mirrors identity updates into the settings store so push
// token registration can attach them.
type pushComponent struct {
	settings storage.Store
	logger   *slog.Logger
}

func (*pushComponent) Role() component.Role { return component.RolePush }

func (c *pushComponent) HandleOperation(ctx context.Context, op component.Operation) error {
	switch o := op.(type) {
	case component.SetUserIDOperation:
		return c.settings.SetString(storage.KeyUserID, o.UserID)
	case component.SetUserEmailOperation:
		return c.settings.SetString(storage.KeyUserEmail, o.Email)
	}
	return nil
}
