// Package bootstrap runs the SDK's asynchronous initialization: a small
// dependency graph of fetch/merge/initialize tasks executed with bounded
// parallelism, guarded by a single-flight flag.
package bootstrap

import "context"

// TaskFunc is the unit of bootstrap work. A task either succeeds or returns
// an error; there is no partial completion.
type TaskFunc func(ctx context.Context) error

// TaskState tracks a task's progress through one bootstrap attempt.
type TaskState int

const (
	// TaskPending means the task has unmet dependencies.
	TaskPending TaskState = iota

	// TaskRunning means the task is currently executing.
	TaskRunning

	// TaskSucceeded means the task completed without error.
	TaskSucceeded

	// TaskFailed means the task returned an error, panicked, or was
	// released by a cancelled context.
	TaskFailed
)

// String returns a human-readable state name.
func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	}
	return "unknown"
}
