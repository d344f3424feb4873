// Package engine owns the plugin and hook registries and serialises every
// top-level entry point (start, stop, reload, run all, change dispatch,
// pause and scope changes) behind one mutex.
package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"sentinel/internal/hook"
	"sentinel/internal/logging"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/runner"
	"sentinel/internal/scope"
	"sentinel/internal/watcher"

	"github.com/google/uuid"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sentinel/engine"

var ErrNoPlugins = errors.New("no plugins found in config, please add at least one")

// UI is what the engine reports through.
type UI interface {
	runner.UI
	Notify(message string, details notify.Details)
}

// Loader fills freshly reset registries from the configuration.
type Loader func(registry *plugin.Registry, hooks *hook.Registry) error

type Options struct {
	Registry *plugin.Registry
	Hooks    *hook.Registry
	UI       UI
	Logger   *logging.Logger
	Loader   Loader
	Tracer   trace.Tracer
	// RunnerOptions customises the runner; Registry, Hooks, UI and Logger
	// are filled in by the engine.
	RunnerOptions runner.Options
}

type Engine struct {
	mu       sync.Mutex
	registry *plugin.Registry
	hooks    *hook.Registry
	runner   *runner.Runner
	ui       UI
	logger   *logging.Logger
	loader   Loader
	tracer   trace.Tracer
	paused   bool
	reloads  chan struct{}
}

func New(options Options) *Engine {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	registry := options.Registry
	if registry == nil {
		registry = plugin.NewRegistry()
	}
	hooks := options.Hooks
	if hooks == nil {
		hooks = hook.NewRegistry(logger)
	}
	ui := options.UI
	if ui == nil {
		ui = logUI{logger: logger}
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otelapi.Tracer(tracerName)
	}
	loader := options.Loader
	if loader == nil {
		loader = func(*plugin.Registry, *hook.Registry) error { return nil }
	}
	runnerOptions := options.RunnerOptions
	runnerOptions.Registry = registry
	runnerOptions.Hooks = hooks
	runnerOptions.UI = ui
	runnerOptions.Logger = logger
	if runnerOptions.Tracer == nil {
		runnerOptions.Tracer = options.Tracer
	}
	return &Engine{
		registry: registry,
		hooks:    hooks,
		runner:   runner.New(runnerOptions),
		ui:       ui,
		logger:   logger.WithCategory("engine"),
		loader:   loader,
		tracer:   tracer,
		reloads:  make(chan struct{}, 1),
	}
}

func (e *Engine) Registry() *plugin.Registry { return e.registry }
func (e *Engine) Hooks() *hook.Registry      { return e.hooks }
func (e *Engine) Runner() *runner.Runner     { return e.runner }

// Load evaluates the configuration into the empty registries and reports
// deprecated plugin tasks.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loader(e.registry, e.hooks); err != nil {
		return err
	}
	if e.registry.Len() == 0 {
		return ErrNoPlugins
	}
	e.runner.DeprecationWarnings()
	return nil
}

// Start runs the start task of every plugin.
func (e *Engine) Start(ctx context.Context) runner.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Run(ctx, plugin.TaskStart, plugin.Scope{})
}

// Stop runs the stop task of every plugin.
func (e *Engine) Stop(ctx context.Context) runner.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Run(ctx, plugin.TaskStop, plugin.Scope{})
}

// Reload stops every plugin, drops all plugins, groups and hooks, evaluates
// the configuration again and starts the new plugins.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := e.tracer.Start(ctx, "sentinel.reload")
	defer span.End()

	e.runner.Run(ctx, plugin.TaskStop, plugin.Scope{})
	e.hooks.Reset()
	e.registry.Reset()
	e.runner.SetScope(plugin.Scope{})

	err := e.loader(e.registry, e.hooks)
	if err == nil && e.registry.Len() == 0 {
		err = ErrNoPlugins
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.ui.Error("Failed to reload the configuration: " + err.Error())
		e.ui.Notify("Failed to reload the configuration", notify.Details{Image: "failed"})
		e.logger.Error("reload failed", map[string]string{"error": err.Error()})
		return err
	}

	span.SetAttributes(attribute.Int("sentinel.plugins", e.registry.Len()))
	e.runner.DeprecationWarnings()
	e.ui.Info("Configuration reloaded")
	e.ui.Notify("Configuration has been re-evaluated.", notify.Details{Image: "success"})
	e.logger.Info("reload complete", map[string]string{"plugins": strconv.Itoa(e.registry.Len())})
	e.runner.Run(ctx, plugin.TaskStart, plugin.Scope{})
	return nil
}

// RunAll runs the run_all task within scope, or the default scope when
// scope is empty.
func (e *Engine) RunAll(ctx context.Context, s plugin.Scope) runner.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	s = e.effectiveScope(s)
	e.ui.Info("Run " + scope.Describe(s))
	return e.runner.Run(ctx, plugin.TaskRunAll, s)
}

// ReloadPlugins runs the reload task within scope.
func (e *Engine) ReloadPlugins(ctx context.Context, s plugin.Scope) runner.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	s = e.effectiveScope(s)
	e.ui.Info("Reload " + scope.Describe(s))
	return e.runner.Run(ctx, plugin.TaskReload, s)
}

// RunTask runs any task within scope, or the default scope when scope is
// empty.
func (e *Engine) RunTask(ctx context.Context, task plugin.Task, s plugin.Scope) runner.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Run(ctx, task, e.effectiveScope(s))
}

// Dispatch hands a change batch to the runner. Batches arriving while the
// engine is paused are dropped; the result reports whether it ran.
func (e *Engine) Dispatch(ctx context.Context, batch watcher.Batch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		e.logger.Debug("batch dropped while paused", map[string]string{
			"paths": strconv.Itoa(len(batch.Paths())),
		})
		return false
	}
	if batch.Empty() {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "sentinel.dispatch", trace.WithAttributes(
		attribute.String("sentinel.batch.id", id),
	))
	defer span.End()
	e.logger.Debug("dispatching batch", map[string]string{
		"batch":    id,
		"modified": strconv.Itoa(len(batch.Modified)),
		"added":    strconv.Itoa(len(batch.Added)),
		"removed":  strconv.Itoa(len(batch.Removed)),
	})
	e.runner.RunOnChanges(ctx, batch.Modified, batch.Added, batch.Removed)
	return true
}

func (e *Engine) Pause() {
	e.setPaused(true)
}

func (e *Engine) Resume() {
	e.setPaused(false)
}

// TogglePause flips the paused state and returns the new state.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setPausedLocked(!e.paused)
	return e.paused
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetScope sets the default scope for change dispatch and run all.
func (e *Engine) SetScope(s plugin.Scope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runner.SetScope(s)
	e.ui.Info("Scope set to " + scope.Describe(s))
}

func (e *Engine) Scope() plugin.Scope {
	return e.runner.Scope()
}

// RequestReload queues a configuration reload without blocking. Plugins call
// it from inside a dispatch, where Reload would deadlock; the owner of the
// engine drains Reloads and calls Reload.
func (e *Engine) RequestReload() {
	select {
	case e.reloads <- struct{}{}:
	default:
	}
}

func (e *Engine) Reloads() <-chan struct{} {
	return e.reloads
}

func (e *Engine) setPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setPausedLocked(paused)
}

func (e *Engine) setPausedLocked(paused bool) {
	if e.paused == paused {
		return
	}
	e.paused = paused
	if paused {
		e.ui.Info("File event handling has been paused")
		e.ui.Notify("Paused", notify.Details{Image: "pending"})
	} else {
		e.ui.Info("File event handling has been resumed")
		e.ui.Notify("Resumed", notify.Details{Image: "success"})
	}
}

func (e *Engine) effectiveScope(s plugin.Scope) plugin.Scope {
	if s.Empty() {
		return e.runner.Scope()
	}
	return s
}

type logUI struct {
	logger *logging.Logger
}

func (u logUI) Error(message string)                    { u.logger.Error(message, nil) }
func (u logUI) Info(message string)                     { u.logger.Info(message, nil) }
func (u logUI) Deprecation(message string)              { u.logger.Warn(message, nil) }
func (u logUI) MarkClearable()                          {}
func (u logUI) Clear()                                  {}
func (u logUI) Notify(message string, _ notify.Details) { u.logger.Info(message, nil) }
