package component

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/observability"
)

// Router fans operations out to every registered component. Delivery is
// fire-and-forget: component failures and panics are logged and counted but
// never reach the caller or affect sibling components.
type Router struct {
	registry *Registry
	store    *config.Store
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// NewRouter creates a router over the given registry and configuration store.
func NewRouter(registry *Registry, store *config.Store, logger *slog.Logger, metrics observability.MetricsRecorder) *Router {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Router{
		registry: registry,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch delivers the operation to every component that can consume it.
// Before initialization completes the registry is empty and the operation is
// dropped; callers are expected to wait for bootstrap if they need delivery.
func (r *Router) Dispatch(ctx context.Context, op Operation) {
	if r.registry.Len() == 0 {
		if r.logger != nil {
			r.logger.Debug("operation dropped, no components registered",
				slog.String("operation", op.Kind()),
			)
		}
		return
	}

	// Event-bearing operations are decorated once and shared across wire
	// consumers. Decoration is lazy: it only happens if a consumer exists.
	events, bearing := eventsOf(op)
	var (
		decorated     []event.Decorated
		decoratedOnce bool
	)

	r.registry.Range(func(c Component) bool {
		var (
			err     error
			handled bool
		)

		// A wire consumer receives event-bearing operations as decorated
		// events, even if it also handles raw operations.
		if wc, ok := c.(WireConsumer); ok && bearing {
			if !decoratedOnce {
				decorated = r.decorate(events)
				decoratedOnce = true
			}
			if len(decorated) == 0 {
				return true
			}
			err = r.consume(ctx, wc, decorated)
			handled = true
		} else if h, ok := c.(OperationHandler); ok {
			err = r.invoke(ctx, h, op)
			handled = true
		}
		if !handled {
			return true
		}

		r.metrics.RecordDispatch(ctx, op.Kind(), string(c.Role()), err)
		if err != nil {
			observability.LogComponentError(r.logger, string(c.Role()), op.Kind(), err)
		}
		return true
	})
}

// eventsOf extracts the application events an operation carries, if any.
func eventsOf(op Operation) ([]event.Event, bool) {
	switch o := op.(type) {
	case ReportOperation:
		return o.Events, true
	case ReportScreenOperation:
		return []event.Event{o.Event()}, true
	}
	return nil, false
}

// invoke calls an operation handler, converting panics to errors.
func (r *Router) invoke(ctx context.Context, h OperationHandler, op Operation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("component %s panicked: %v", h.Role(), rec)
		}
	}()
	return h.HandleOperation(ctx, op)
}

// consume calls a wire consumer, converting panics to errors.
func (r *Router) consume(ctx context.Context, w WireConsumer, events []event.Decorated) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("component %s panicked: %v", w.Role(), rec)
		}
	}()
	return w.ConsumeWire(ctx, events)
}

// decorate validates the reported events against the current configuration.
// Events without a declared schema or failing validation are dropped
// individually; the rest proceed.
func (r *Router) decorate(events []event.Event) []event.Decorated {
	cfg := r.store.Current()
	if cfg == nil {
		for _, evt := range events {
			observability.LogEventDropped(r.logger, evt.Name, "no configuration")
		}
		return nil
	}

	decorated := make([]event.Decorated, 0, len(events))
	for _, evt := range events {
		name := event.Normalize(evt.Name)
		settings, ok := cfg.EventSettings(name)
		if !ok {
			observability.LogEventDropped(r.logger, name, "event not configured")
			continue
		}
		d, err := event.Decorate(evt, settings)
		if err != nil {
			observability.LogEventDropped(r.logger, name, err.Error())
			continue
		}
		decorated = append(decorated, d)
	}
	return decorated
}
