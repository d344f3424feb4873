// Package process runs plugin commands in their own process group and
// tracks them so a shutdown can stop whatever is still running.
package process

import (
	"context"
	"errors"
	"os/exec"
	"sort"
	"sync"
	"time"
)

const defaultStopTimeout = 3 * time.Second

var ErrProcessNotFound = errors.New("process not running")

type Entry struct {
	PID  int
	PGID int
	Name string
}

type Registry struct {
	mu      sync.Mutex
	entries map[int]Entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int]Entry),
	}
}

func (r *Registry) Register(pid, pgid int, name string) {
	if r == nil || pid <= 0 {
		return
	}
	r.mu.Lock()
	r.entries[pid] = Entry{
		PID:  pid,
		PGID: pgid,
		Name: name,
	}
	r.mu.Unlock()
}

func (r *Registry) Unregister(pid int) {
	if r == nil || pid <= 0 {
		return
	}
	r.mu.Lock()
	delete(r.entries, pid)
	r.mu.Unlock()
}

// Track registers a started command and returns the function that forgets
// it once the caller's Wait has returned.
func (r *Registry) Track(cmd *exec.Cmd, name string) func() {
	if r == nil || cmd == nil || cmd.Process == nil {
		return func() {}
	}
	pid := cmd.Process.Pid
	r.Register(pid, GroupID(pid), name)
	return func() { r.Unregister(pid) }
}

// Entries lists tracked processes ordered by pid.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.Unlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].PID < entries[j].PID })
	return entries
}

// StopAll terminates every tracked process group, escalating to a kill when
// a group outlives the stop timeout or ctx.
func (r *Registry) StopAll(ctx context.Context) error {
	if r == nil {
		return nil
	}
	entries := r.Entries()
	var stopErr error
	for _, entry := range entries {
		if err := stopProcess(ctx, entry.PID, entry.PGID); err != nil && !errors.Is(err, ErrProcessNotFound) {
			stopErr = errors.Join(stopErr, err)
		}
	}
	if len(entries) > 0 {
		r.mu.Lock()
		for _, entry := range entries {
			delete(r.entries, entry.PID)
		}
		r.mu.Unlock()
	}
	return stopErr
}

// waitDeadline bounds a stop wait by the default timeout and ctx.
func waitDeadline(ctx context.Context) (time.Time, error) {
	timeout := defaultStopTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return time.Time{}, ctx.Err()
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	return time.Now().Add(timeout), nil
}
