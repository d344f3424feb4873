package runner

import (
	"fmt"

	"sentinel/internal/plugin"
)

// Kind classifies how a supervised task ended.
type Kind int

const (
	// KindOK: the task returned normally; Outcome.Value holds its result.
	KindOK Kind = iota
	// KindContinue: the task failed, the failure stays with this plugin.
	KindContinue
	// KindHalt: the task failed in a halt_on_fail group; the run stops.
	KindHalt
	// KindFaulted: the task broke; the plugin was removed and Outcome.Value
	// holds the *Fault.
	KindFaulted
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindContinue:
		return "continue"
	case KindHalt:
		return "halt"
	case KindFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one supervised task call.
type Outcome struct {
	Kind  Kind
	Value any
	// Err is the failure returned by the task for KindContinue and KindHalt,
	// or the *Fault for KindFaulted.
	Err error
}

// Fault wraps an unexpected error or panic raised by plugin code.
type Fault struct {
	Plugin string
	Task   plugin.Task
	Err    error
	Stack  []byte
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s <%s>: %v", f.Plugin, f.Task, f.Err)
}

func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Report summarizes a Run call.
type Report struct {
	Task plugin.Task
	// Ran lists the plugins whose task was invoked, in order.
	Ran []string
	// Failed lists plugins whose task signalled a recoverable failure.
	Failed []string
	// Removed lists plugins deregistered after a fault.
	Removed []string
	// HaltedBy names the plugin whose failure stopped the run, if any.
	HaltedBy string
}

func (r Report) Halted() bool {
	return r.HaltedBy != ""
}
