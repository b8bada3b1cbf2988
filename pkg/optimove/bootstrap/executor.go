package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/optimove/optimove-go/pkg/optimove/observability"
)

// DefaultWorkers bounds task parallelism when ExecutorConfig.Workers is zero.
const DefaultWorkers = 4

// ExecutorConfig configures an Executor. Zero values select defaults:
// DefaultWorkers workers, no logging, no metrics, no tracing.
type ExecutorConfig struct {
	// Workers bounds how many tasks run concurrently.
	Workers int

	// Logger receives task lifecycle records. Nil disables logging.
	Logger *slog.Logger

	// Metrics records task executions. Nil disables metrics.
	Metrics observability.MetricsRecorder

	// Spans traces task executions. Nil disables tracing.
	Spans observability.SpanManager
}

// Executor runs a CompiledGraph: tasks start as soon as all their
// dependencies succeed, up to the configured parallelism.
type Executor struct {
	workers int
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewExecutor creates an executor from the given config.
func NewExecutor(cfg ExecutorConfig) *Executor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	spans := cfg.Spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}
	return &Executor{
		workers: workers,
		logger:  cfg.Logger,
		metrics: metrics,
		spans:   spans,
	}
}

// taskPanicError wraps a recovered panic from a task function.
type taskPanicError struct {
	taskID string
	value  any
}

func (e *taskPanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.taskID, e.value)
}

// run tracks one execution of a compiled graph.
type run struct {
	mu        sync.Mutex
	remaining map[string]int
	states    map[string]TaskState
	errs      map[string]error
	ready     chan string
}

// Run executes every task in the graph and returns the per-task results.
// A task whose dependency failed still runs; tasks that need a dependency's
// output observe its failure through shared state, not through the executor.
// Cancelling ctx fails tasks that have not started and stops scheduling, but
// tasks already running are left to honor ctx themselves.
//
// The returned map has one entry per task; a nil value means success.
func (e *Executor) Run(ctx context.Context, cg *CompiledGraph) map[string]error {
	r := &run{
		remaining: make(map[string]int, cg.Len()),
		states:    make(map[string]TaskState, cg.Len()),
		errs:      make(map[string]error, cg.Len()),
		ready:     make(chan string, cg.Len()),
	}

	for _, id := range cg.order {
		r.remaining[id] = len(cg.deps[id])
		r.states[id] = TaskPending
		if r.remaining[id] == 0 {
			r.ready <- id
		}
	}

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	wg.Add(cg.Len())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	scheduled := 0
	for scheduled < cg.Len() {
		select {
		case id := <-r.ready:
			scheduled++
			if ctx.Err() != nil {
				e.finish(cg, r, id, ctx.Err(), &wg)
				continue
			}
			sem <- struct{}{}
			go func(taskID string) {
				defer func() { <-sem }()
				err := e.execute(ctx, cg.tasks[taskID], taskID)
				e.finish(cg, r, taskID, err, &wg)
			}(id)
		case <-ctx.Done():
			// Drain what's ready so every task is accounted for.
			for scheduled < cg.Len() {
				id := <-r.ready
				scheduled++
				e.finish(cg, r, id, ctx.Err(), &wg)
			}
		}
	}

	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	results := make(map[string]error, len(r.errs))
	for id, err := range r.errs {
		results[id] = err
	}
	return results
}

// execute runs one task with logging, metrics, tracing, and panic recovery.
func (e *Executor) execute(ctx context.Context, fn TaskFunc, taskID string) (err error) {
	taskCtx, span := e.spans.StartTaskSpan(ctx, taskID)
	observability.LogTaskStart(e.logger, taskID)
	elapsed := observability.TimedOperation()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = &taskPanicError{taskID: taskID, value: rec}
		}
		e.metrics.RecordTask(ctx, taskID, time.Since(start), err)
		e.spans.EndSpanWithError(span, err)
		if err != nil {
			observability.LogTaskError(e.logger, taskID, err)
		} else {
			observability.LogTaskComplete(e.logger, taskID, elapsed())
		}
	}()

	return fn(taskCtx)
}

// finish records a task's outcome and releases its dependents.
func (e *Executor) finish(cg *CompiledGraph, r *run, taskID string, err error, wg *sync.WaitGroup) {
	r.mu.Lock()
	if err != nil {
		r.states[taskID] = TaskFailed
	} else {
		r.states[taskID] = TaskSucceeded
	}
	r.errs[taskID] = err

	for _, dep := range cg.dependents[taskID] {
		r.remaining[dep]--
		if r.remaining[dep] == 0 {
			r.ready <- dep
		}
	}
	r.mu.Unlock()

	wg.Done()
}
