package optimove

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/optimove/optimove-go/pkg/optimove/bootstrap"
	"github.com/optimove/optimove-go/pkg/optimove/component"
	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/observability"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// Optimove is the SDK facade. Construct with New, initialize once, then
// report. All methods are safe for concurrent use.
type Optimove struct {
	configStore  *config.Store
	settings     storage.Store
	registry     *component.Registry
	router       *component.Router
	orchestrator *bootstrap.Orchestrator
	logger       *slog.Logger
	closed       chan struct{}
}

// New creates an uninitialized SDK instance around the given configuration
// source. Unless disabled, OPTIMOVE_* environment variables override the
// fetched endpoints and token.
func New(source config.Source, opts ...Option) (*Optimove, error) {
	if source == nil {
		return nil, errors.New("configuration source is required")
	}

	s := &settings{
		fanout:  observability.NewFanoutHandler(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		factory: defaultFactory{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(s.fanout)
	}
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}

	if !s.noEnv {
		overrides, err := config.OverridesFromEnv()
		if err != nil {
			return nil, fmt.Errorf("parse environment overrides: %w", err)
		}
		source = config.WithOverrides(source, overrides)
	}

	o := &Optimove{
		configStore: config.NewStore(),
		settings:    s.store,
		registry:    component.NewRegistry(),
		logger:      s.logger,
		closed:      make(chan struct{}),
	}
	o.router = component.NewRouter(o.registry, o.configStore, s.logger, s.metrics)
	o.orchestrator = bootstrap.NewOrchestrator(bootstrap.OrchestratorConfig{
		Source:       source,
		Store:        o.configStore,
		OnInitialize: o.buildComponents(s),
		Workers:      s.workers,
		Logger:       s.logger,
		Metrics:      s.metrics,
		Spans:        s.spans,
	})
	return o, nil
}

// buildComponents returns the initialization callback: persist the tenant
// identifiers, build the component set, and register each component as soon
// as it is built so earlier components are visible while later ones
// construct.
func (o *Optimove) buildComponents(s *settings) bootstrap.InitializeFunc {
	return func(ctx context.Context, cfg *config.Configuration) (int, error) {
		if err := o.settings.SetString(storage.KeySiteID, cfg.SiteID()); err != nil {
			return 0, fmt.Errorf("persist site id: %w", err)
		}
		if err := o.settings.SetString(storage.KeyTenantID, cfg.TenantID()); err != nil {
			return 0, fmt.Errorf("persist tenant id: %w", err)
		}

		logger := o.logger.With(slog.String("tenant_id", cfg.TenantID()))

		components, err := s.factory.Build(ctx, Dependencies{
			Config:          cfg,
			ConfigStore:     o.configStore,
			Settings:        o.settings,
			Logger:          logger,
			Metrics:         s.metrics,
			Transport:       s.transport,
			TrackSink:       s.trackSink,
			RealtimeOptions: s.rtOpts,
		})

		// Register whatever was built even if construction stopped early; a
		// partial component set still serves the channels it covers.
		registered := 0
		for _, c := range components {
			if regErr := o.registry.Register(c); regErr != nil {
				err = errors.Join(err, regErr)
				continue
			}
			registered++
		}
		return registered, err
	}
}

// InitializeFromRemote fetches both configuration fragments, merges them,
// and builds the components. At most one call per instance succeeds; later
// calls return ErrAlreadyInitialized.
func (o *Optimove) InitializeFromRemote(ctx context.Context) error {
	return o.orchestrator.InitializeFromRemote(ctx)
}

// InitializeFromLocal initializes from a bundled configuration file
// (YAML or JSON) instead of the remote service.
func (o *Optimove) InitializeFromLocal(ctx context.Context, path string) error {
	snapshot, err := config.FromFile(path)
	if err != nil {
		return err
	}
	return o.orchestrator.InitializeFromLocal(ctx, snapshot.Global, snapshot.Tenant)
}

// Initialized reports whether an initialization attempt has claimed the
// instance.
func (o *Optimove) Initialized() bool {
	return o.orchestrator.Flag().State() == bootstrap.InitializingOrInitialized
}

// ReportEvent validates and delivers one or more application events to every
// registered component. Fire-and-forget: per-event and per-component
// failures are logged, never returned.
func (o *Optimove) ReportEvent(ctx context.Context, events ...event.Event) {
	if len(events) == 0 {
		return
	}
	o.router.Dispatch(ctx, component.ReportOperation{Events: events})
}

// ReportScreenVisit records a screen visit. Category may be empty.
func (o *Optimove) ReportScreenVisit(ctx context.Context, title, category string) {
	o.router.Dispatch(ctx, component.ReportScreenOperation{Title: title, Category: category})
}

// SetUserID binds a user identifier to the current visitor.
func (o *Optimove) SetUserID(ctx context.Context, userID string) {
	o.router.Dispatch(ctx, component.SetUserIDOperation{UserID: userID})
}

// SetUserEmail binds an email address to the current visitor.
func (o *Optimove) SetUserEmail(ctx context.Context, email string) {
	o.router.Dispatch(ctx, component.SetUserEmailOperation{Email: email})
}

// DispatchNow flushes buffered tracking events immediately.
func (o *Optimove) DispatchNow(ctx context.Context) {
	o.router.Dispatch(ctx, component.DispatchNowOperation{})
}

// VisitorID returns the persistent visitor identifier, or empty before
// initialization.
func (o *Optimove) VisitorID() string {
	id, err := o.settings.GetString(storage.KeyVisitorID)
	if err != nil {
		return ""
	}
	return id
}

// Close tears down the components and the settings store. The instance must
// not be used afterwards.
func (o *Optimove) Close() error {
	select {
	case <-o.closed:
		return nil
	default:
		close(o.closed)
	}

	var errs []error
	o.registry.Range(func(c component.Component) bool {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return true
	})
	if err := o.settings.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
