package plugin

import (
	"context"
	"strings"
	"sync"
)

// Plugin is a registered reactor. Concrete plugins usually embed *Base and
// register only the tasks they implement.
type Plugin interface {
	// Type is the plugin kind, e.g. "shell". Hooks are keyed by type.
	Type() string
	// Name identifies the plugin inside a registry; defaults to Type.
	Name() string
	Group() string
	Rules() []Rule
	Options() map[string]any
	Task(task Task) (TaskFunc, bool)
}

// HookNotifier receives lifecycle events fired by plugins.
type HookNotifier interface {
	Notify(ctx context.Context, pluginType, event string, args ...any)
}

// Implements reports whether the plugin exposes the task.
func Implements(p Plugin, task Task) bool {
	if p == nil {
		return false
	}
	_, ok := p.Task(task)
	return ok
}

// Spec describes a plugin instance as produced by configuration load.
type Spec struct {
	Type    string
	Name    string
	Group   string
	Rules   []Rule
	Options map[string]any
}

// Base implements the bookkeeping part of Plugin.
type Base struct {
	kind    string
	name    string
	group   string
	rules   []Rule
	options map[string]any

	mu    sync.RWMutex
	tasks map[Task]TaskFunc
	hooks HookNotifier
}

func NewBase(spec Spec) *Base {
	kind := strings.TrimSpace(spec.Type)
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = kind
	}
	group := strings.TrimSpace(spec.Group)
	if group == "" {
		group = DefaultGroup
	}
	options := spec.Options
	if options == nil {
		options = map[string]any{}
	}
	rules := make([]Rule, len(spec.Rules))
	copy(rules, spec.Rules)
	return &Base{
		kind:    kind,
		name:    name,
		group:   group,
		rules:   rules,
		options: options,
		tasks:   make(map[Task]TaskFunc),
	}
}

func (b *Base) Type() string            { return b.kind }
func (b *Base) Name() string            { return b.name }
func (b *Base) Group() string           { return b.group }
func (b *Base) Rules() []Rule           { return b.rules }
func (b *Base) Options() map[string]any { return b.options }

// Handle registers the implementation of a task. A nil fn unregisters it.
func (b *Base) Handle(task Task, fn TaskFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		delete(b.tasks, task)
		return
	}
	b.tasks[task] = fn
}

func (b *Base) Task(task Task) (TaskFunc, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.tasks[task]
	return fn, ok
}

// SetHooks attaches the notifier used by Hook.
func (b *Base) SetHooks(hooks HookNotifier) {
	b.mu.Lock()
	b.hooks = hooks
	b.mu.Unlock()
}

// Hook fires a named event for this plugin's type.
func (b *Base) Hook(ctx context.Context, event string, args ...any) {
	b.mu.RLock()
	hooks := b.hooks
	b.mu.RUnlock()
	if hooks == nil || strings.TrimSpace(event) == "" {
		return
	}
	hooks.Notify(ctx, b.kind, event, args...)
}

// HookPhase fires "<task>_<phase>", e.g. HookPhase(ctx, TaskRunAll, "begin").
func (b *Base) HookPhase(ctx context.Context, task Task, phase string, args ...any) {
	b.Hook(ctx, EventName(string(task), phase), args...)
}

// EventName derives a hook event from a base name and a phase suffix.
func EventName(base, phase string) string {
	base = strings.TrimSpace(base)
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return base
	}
	if base == "" {
		return phase
	}
	return base + "_" + phase
}

// StringOption reads a string option, falling back when unset or mistyped.
func StringOption(p Plugin, key, fallback string) string {
	if p == nil {
		return fallback
	}
	if value, ok := p.Options()[key].(string); ok {
		return value
	}
	return fallback
}

// BoolOption reads a boolean option, falling back when unset or mistyped.
func BoolOption(p Plugin, key string, fallback bool) bool {
	if p == nil {
		return fallback
	}
	if value, ok := p.Options()[key].(bool); ok {
		return value
	}
	return fallback
}
