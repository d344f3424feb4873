package plugin

import (
	"context"
	"errors"
	"strings"
)

// Task names a lifecycle task a plugin may implement.
type Task string

const (
	TaskStart              Task = "start"
	TaskStop               Task = "stop"
	TaskReload             Task = "reload"
	TaskRunAll             Task = "run_all"
	TaskRunOnChanges       Task = "run_on_changes"
	TaskRunOnModifications Task = "run_on_modifications"
	TaskRunOnAdditions     Task = "run_on_additions"
	TaskRunOnRemovals      Task = "run_on_removals"

	// Legacy change tasks, still dispatched but reported as deprecated.
	TaskRunOnChange   Task = "run_on_change"
	TaskRunOnDeletion Task = "run_on_deletion"
)

// Tasks lists every task name a plugin can implement.
var Tasks = []Task{
	TaskStart,
	TaskStop,
	TaskReload,
	TaskRunAll,
	TaskRunOnChanges,
	TaskRunOnModifications,
	TaskRunOnAdditions,
	TaskRunOnRemovals,
	TaskRunOnChange,
	TaskRunOnDeletion,
}

// ErrTaskFailed is returned (possibly wrapped) by a task that ran but did not
// succeed. It is the recoverable failure kind; any other error is a fault.
var ErrTaskFailed = errors.New("task failed")

// TaskFunc is the body of a lifecycle task.
type TaskFunc func(ctx context.Context, args ...any) (any, error)

// ParseTask maps a user supplied name to a known task.
func ParseTask(name string) (Task, bool) {
	normalized := Task(strings.ToLower(strings.TrimSpace(name)))
	for _, task := range Tasks {
		if task == normalized {
			return task, true
		}
	}
	return "", false
}

// Valid reports whether the task is part of the known task set.
func (t Task) Valid() bool {
	_, ok := ParseTask(string(t))
	return ok
}

// Failed wraps a message as a recoverable task failure.
func Failed(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrTaskFailed
	}
	return &failure{message: message}
}

type failure struct {
	message string
}

func (f *failure) Error() string {
	return f.message
}

func (f *failure) Unwrap() error {
	return ErrTaskFailed
}
