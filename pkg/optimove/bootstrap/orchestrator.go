package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/observability"
)

// Task IDs of the bootstrap graph.
const (
	TaskFetchGlobal = "fetch_global"
	TaskFetchTenant = "fetch_tenant"
	TaskMerge       = "merge"
	TaskInitialize  = "initialize"
)

// Sentinel errors for bootstrap outcomes.
var (
	// ErrAlreadyInitialized indicates a previous attempt already claimed the
	// running flag. Initialization happens at most once per process.
	ErrAlreadyInitialized = errors.New("sdk already initialized")

	// ErrConfigurationUnavailable indicates no usable configuration could be
	// built from the fetched fragments.
	ErrConfigurationUnavailable = errors.New("configuration unavailable")
)

// InitializeFunc is called exactly once, after the configuration is
// installed, to construct and register the SDK components. It returns the
// number of components registered.
type InitializeFunc func(ctx context.Context, cfg *config.Configuration) (int, error)

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// Source fetches configuration fragments. Required.
	Source config.Source

	// Store receives the merged configuration. Required.
	Store *config.Store

	// OnInitialize builds and registers components. Required.
	OnInitialize InitializeFunc

	// Workers bounds fetch parallelism. Zero selects the executor default.
	Workers int

	// Logger, Metrics, and Spans are optional observability hooks.
	Logger  *slog.Logger
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager
}

// Orchestrator drives bootstrap attempts: fetch both fragments in parallel,
// merge them, and initialize components, all guarded by a single-flight flag.
type Orchestrator struct {
	source       config.Source
	store        *config.Store
	onInitialize InitializeFunc
	flag         *RunningFlag
	executor     *Executor
	logger       *slog.Logger
	metrics      observability.MetricsRecorder
	spans        observability.SpanManager
}

// NewOrchestrator creates an orchestrator with an Idle running flag.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	spans := cfg.Spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}
	return &Orchestrator{
		source:       cfg.Source,
		store:        cfg.Store,
		onInitialize: cfg.OnInitialize,
		flag:         NewRunningFlag(),
		executor: NewExecutor(ExecutorConfig{
			Workers: cfg.Workers,
			Logger:  cfg.Logger,
			Metrics: metrics,
			Spans:   spans,
		}),
		logger:  cfg.Logger,
		metrics: metrics,
		spans:   spans,
	}
}

// Flag exposes the single-flight flag state.
func (o *Orchestrator) Flag() *RunningFlag {
	return o.flag
}

// InitializeFromRemote runs one full bootstrap attempt against the remote
// configuration source. The two fetches run in parallel; merge waits for
// both and is best-effort over whatever they produced; initialize runs once
// per process.
//
// The returned error reflects the initialize task: ErrAlreadyInitialized if
// the flag was claimed earlier, ErrConfigurationUnavailable (wrapping the
// merge failure) if no configuration could be built.
func (o *Orchestrator) InitializeFromRemote(ctx context.Context) error {
	attemptID := uuid.NewString()
	ctx, span := o.spans.StartBootstrapSpan(ctx, attemptID)
	observability.LogBootstrapStart(o.logger, attemptID)
	elapsed := observability.TimedOperation()
	start := time.Now()

	repo := config.NewFragmentRepository()

	// Attempt-local merge result, written by the merge task and read by the
	// initialize task. The scheduler orders the two, so no lock is needed.
	var (
		merged     *config.Configuration
		buildErr   error
		components int
	)

	graph := NewGraph()
	graph.AddTask(TaskFetchGlobal, func(ctx context.Context) error {
		fragment, err := o.source.FetchGlobal(ctx)
		if err != nil {
			return fmt.Errorf("fetch global fragment: %w", err)
		}
		repo.SetGlobal(fragment)
		return nil
	})
	graph.AddTask(TaskFetchTenant, func(ctx context.Context) error {
		fragment, err := o.source.FetchTenant(ctx)
		if err != nil {
			return fmt.Errorf("fetch tenant fragment: %w", err)
		}
		repo.SetTenant(fragment)
		return nil
	})
	graph.AddTask(TaskMerge, func(ctx context.Context) error {
		merged, buildErr = config.Merge(repo.Global(), repo.Tenant())
		return buildErr
	}, TaskFetchGlobal, TaskFetchTenant)
	graph.AddTask(TaskInitialize, func(ctx context.Context) error {
		if merged == nil {
			return fmt.Errorf("%w: %w", ErrConfigurationUnavailable, buildErr)
		}
		n, err := o.initialize(ctx, merged)
		components = n
		return err
	}, TaskMerge, TaskFetchGlobal, TaskFetchTenant)

	compiled, err := graph.Compile()
	if err != nil {
		o.finishAttempt(ctx, span, attemptID, elapsed, start, 0, err)
		return err
	}

	results := o.executor.Run(ctx, compiled)
	err = results[TaskInitialize]
	o.finishAttempt(ctx, span, attemptID, elapsed, start, components, err)
	return err
}

// InitializeFromLocal initializes from fragments already in hand, skipping
// the fetch tasks. Used when the host application bundles configuration.
func (o *Orchestrator) InitializeFromLocal(ctx context.Context, global *config.GlobalFragment, tenant *config.TenantFragment) error {
	attemptID := uuid.NewString()
	ctx, span := o.spans.StartBootstrapSpan(ctx, attemptID)
	observability.LogBootstrapStart(o.logger, attemptID)
	elapsed := observability.TimedOperation()
	start := time.Now()

	merged, err := config.Merge(global, tenant)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
		o.finishAttempt(ctx, span, attemptID, elapsed, start, 0, err)
		return err
	}

	components, err := o.initialize(ctx, merged)
	o.finishAttempt(ctx, span, attemptID, elapsed, start, components, err)
	return err
}

// initialize claims the flag, installs the configuration, and builds the
// components. The flag stays claimed even if component construction fails;
// a partial registry is preferred over re-running construction.
func (o *Orchestrator) initialize(ctx context.Context, cfg *config.Configuration) (int, error) {
	if !o.flag.Acquire() {
		return 0, ErrAlreadyInitialized
	}

	o.store.Replace(cfg)

	if o.onInitialize == nil {
		return 0, nil
	}
	return o.onInitialize(ctx, cfg)
}

// finishAttempt records the attempt outcome on every observability surface.
func (o *Orchestrator) finishAttempt(ctx context.Context, span trace.Span, attemptID string, elapsed func() float64, start time.Time, components int, err error) {
	duration := time.Since(start)
	o.metrics.RecordBootstrap(ctx, err == nil, duration)
	o.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogBootstrapError(o.logger, attemptID, err, elapsed())
		return
	}
	observability.LogBootstrapComplete(o.logger, attemptID, elapsed(), components)
}
