package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph construction and compilation.
var (
	// ErrEmptyGraph indicates Compile was called with no tasks.
	ErrEmptyGraph = errors.New("graph has no tasks")

	// ErrUnknownDependency indicates a task depends on an undeclared task.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrSelfDependency indicates a task depends on itself.
	ErrSelfDependency = errors.New("task depends on itself")

	// ErrCycleDetected indicates the dependency graph is not acyclic.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

// Graph builds a task dependency graph. Not safe for concurrent use;
// build the graph, compile it, then hand the CompiledGraph to an Executor.
type Graph struct {
	tasks map[string]TaskFunc
	deps  map[string][]string
	order []string
}

// NewGraph creates an empty graph builder.
func NewGraph() *Graph {
	return &Graph{
		tasks: make(map[string]TaskFunc),
		deps:  make(map[string][]string),
	}
}

// AddTask registers a task with its dependencies. Dependencies may be
// declared before the tasks they name; Compile validates them.
//
// Panics if id is empty or whitespace, fn is nil, or id is already
// registered. These are programming errors, not runtime conditions.
func (g *Graph) AddTask(id string, fn TaskFunc, deps ...string) *Graph {
	if strings.TrimSpace(id) == "" {
		panic("bootstrap: task ID cannot be empty or whitespace")
	}
	if fn == nil {
		panic(fmt.Sprintf("bootstrap: task function cannot be nil for task '%s'", id))
	}
	if _, exists := g.tasks[id]; exists {
		panic(fmt.Sprintf("bootstrap: task '%s' already exists", id))
	}

	g.tasks[id] = fn
	g.deps[id] = append([]string(nil), deps...)
	g.order = append(g.order, id)
	return g
}

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Graph must have at least one task
//  2. All dependencies must reference existing tasks
//  3. No task may depend on itself
//  4. The dependency graph must be acyclic
func (g *Graph) Compile() (*CompiledGraph, error) {
	var errs []error

	if len(g.tasks) == 0 {
		errs = append(errs, ErrEmptyGraph)
	}

	for id, deps := range g.deps {
		for _, dep := range deps {
			if dep == id {
				errs = append(errs, fmt.Errorf("%w: %s", ErrSelfDependency, id))
				continue
			}
			if _, exists := g.tasks[dep]; !exists {
				errs = append(errs, fmt.Errorf("%w: task '%s' depends on '%s'", ErrUnknownDependency, id, dep))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cycle := g.findCycle(); len(cycle) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(cycle, " -> "))
	}

	return g.buildCompiledGraph(), nil
}

// findCycle runs Kahn's algorithm; any tasks left unprocessed sit on a cycle.
func (g *Graph) findCycle() []string {
	indegree := make(map[string]int, len(g.tasks))
	dependents := make(map[string][]string, len(g.tasks))
	for id, deps := range g.deps {
		indegree[id] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(g.tasks))
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++

		for _, dep := range dependents[current] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed == len(g.tasks) {
		return nil
	}

	var cycle []string
	for _, id := range g.order {
		if indegree[id] > 0 {
			cycle = append(cycle, id)
		}
	}
	return cycle
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	tasks := make(map[string]TaskFunc, len(g.tasks))
	for id, fn := range g.tasks {
		tasks[id] = fn
	}

	deps := make(map[string][]string, len(g.deps))
	dependents := make(map[string][]string, len(g.deps))
	for id, ds := range g.deps {
		deps[id] = append([]string(nil), ds...)
		for _, dep := range ds {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	order := append([]string(nil), g.order...)

	return &CompiledGraph{
		tasks:      tasks,
		deps:       deps,
		dependents: dependents,
		order:      order,
	}
}

// CompiledGraph is a validated, immutable task graph ready for execution.
type CompiledGraph struct {
	tasks      map[string]TaskFunc
	deps       map[string][]string
	dependents map[string][]string
	order      []string
}

// Len returns the number of tasks in the graph.
func (cg *CompiledGraph) Len() int {
	return len(cg.tasks)
}

// TaskIDs returns task IDs in registration order.
func (cg *CompiledGraph) TaskIDs() []string {
	return append([]string(nil), cg.order...)
}
