// Package runner invokes plugin lifecycle tasks with per-plugin failure
// isolation and turns change batches into change tasks.
//
// Every task call goes through RunSupervisedTask, which fires the
// "<task>_begin" and "<task>_end" hooks and classifies failures:
// plugin.ErrTaskFailed is recoverable (and halts the run for halt_on_fail
// groups); any other error or panic removes the plugin from the registry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"sentinel/internal/hook"
	"sentinel/internal/logging"
	"sentinel/internal/match"
	sentinelotel "sentinel/internal/otel"
	"sentinel/internal/plugin"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sentinel/runner"

const (
	runOnChangeDeprecation = "The %s plugin implements 'run_on_change', which is deprecated. " +
		"Implement 'run_on_changes' when the kind of change does not matter, or " +
		"'run_on_modifications' and 'run_on_additions' to handle each kind separately."
	runOnDeletionDeprecation = "The %s plugin implements 'run_on_deletion', which is deprecated. " +
		"Implement 'run_on_changes' when the kind of change does not matter, or " +
		"'run_on_removals' to handle removed files only."
)

var (
	modificationTasks = []plugin.Task{plugin.TaskRunOnModifications, plugin.TaskRunOnChanges, plugin.TaskRunOnChange}
	additionTasks     = []plugin.Task{plugin.TaskRunOnAdditions, plugin.TaskRunOnChanges, plugin.TaskRunOnChange}
	removalTasks      = []plugin.Task{plugin.TaskRunOnRemovals, plugin.TaskRunOnChanges, plugin.TaskRunOnDeletion}
)

// UI is the reporting surface the runner writes to. Calls are fire and forget.
type UI interface {
	Error(message string)
	Info(message string)
	Deprecation(message string)
	MarkClearable()
	Clear()
}

// Options configures a Runner.
type Options struct {
	Registry *plugin.Registry
	Hooks    *hook.Registry
	UI       UI
	Logger   *logging.Logger
	Tracer   trace.Tracer
	Meter    metric.Meter
	// ClearPolicy is evaluated once per change batch; true clears the UI.
	ClearPolicy func() bool
}

// Runner runs tasks over the plugins of a registry.
type Runner struct {
	registry    *plugin.Registry
	hooks       *hook.Registry
	ui          UI
	logger      *logging.Logger
	tracer      trace.Tracer
	metrics     instruments
	clearPolicy func() bool

	scopeMu sync.RWMutex
	scope   plugin.Scope
}

func New(options Options) *Runner {
	registry := options.Registry
	if registry == nil {
		registry = plugin.NewRegistry()
	}
	hooks := options.Hooks
	if hooks == nil {
		hooks = hook.NewRegistry(options.Logger)
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ui := options.UI
	if ui == nil {
		ui = logUI{logger: logger}
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otelapi.Tracer(tracerName)
	}
	meter := options.Meter
	if meter == nil {
		meter = otelapi.Meter(tracerName)
	}
	clearPolicy := options.ClearPolicy
	if clearPolicy == nil {
		clearPolicy = func() bool { return false }
	}
	return &Runner{
		registry:    registry,
		hooks:       hooks,
		ui:          ui,
		logger:      logger.WithCategory("runner"),
		tracer:      tracer,
		metrics:     newInstruments(meter, logger),
		clearPolicy: clearPolicy,
	}
}

func (r *Runner) Registry() *plugin.Registry { return r.registry }
func (r *Runner) Hooks() *hook.Registry      { return r.hooks }

// SetScope sets the default scope used by RunOnChanges and by Run when it is
// given an empty scope.
func (r *Runner) SetScope(scope plugin.Scope) {
	r.scopeMu.Lock()
	r.scope = scope
	r.scopeMu.Unlock()
}

func (r *Runner) Scope() plugin.Scope {
	r.scopeMu.RLock()
	defer r.scopeMu.RUnlock()
	return r.scope
}

// ScopedPlugins resolves a scope to plugins: explicit plugins first, then
// the plugins of explicit groups, else every registered plugin. Results are
// always registered plugins in insertion order.
func (r *Runner) ScopedPlugins(scope plugin.Scope) []plugin.Plugin {
	if len(scope.Plugins) > 0 {
		wanted := make(map[plugin.Plugin]struct{}, len(scope.Plugins))
		for _, p := range scope.Plugins {
			if p != nil {
				wanted[p] = struct{}{}
			}
		}
		plugins := make([]plugin.Plugin, 0, len(wanted))
		for _, p := range r.registry.Plugins() {
			if _, ok := wanted[p]; ok {
				plugins = append(plugins, p)
			}
		}
		return plugins
	}
	if len(scope.Groups) > 0 {
		return r.registry.PluginsInGroups(scope.Groups)
	}
	return r.registry.Plugins()
}

// Run invokes task on every scoped plugin that implements it. A halt from a
// halt_on_fail group stops the iteration; it never propagates further.
func (r *Runner) Run(ctx context.Context, task plugin.Task, scope plugin.Scope) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := r.tracer.Start(ctx, "sentinel.run", trace.WithAttributes(
		attribute.String("sentinel.task", string(task)),
	))
	defer span.End()

	report := Report{Task: task}
	for _, p := range r.ScopedPlugins(scope) {
		if !plugin.Implements(p, task) {
			continue
		}
		outcome := r.RunSupervisedTask(ctx, p, task)
		r.record(&report, p, outcome)
		if outcome.Kind == KindHalt {
			span.AddEvent("sentinel.halt", trace.WithAttributes(attribute.String("sentinel.plugin", p.Name())))
			r.logger.Info("run halted", map[string]string{
				"task":   string(task),
				"plugin": p.Name(),
			})
			break
		}
	}
	span.SetAttributes(attribute.Int("sentinel.plugins_run", len(report.Ran)))
	return report
}

// RunSupervisedTask calls one task on one plugin, wrapped in the begin and
// end hooks and the failure policy of the plugin's group.
func (r *Runner) RunSupervisedTask(ctx context.Context, p plugin.Plugin, task plugin.Task, args ...any) (outcome Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := r.tracer.Start(ctx, "sentinel.task", trace.WithAttributes(
		attribute.String("sentinel.task", string(task)),
		attribute.String("sentinel.plugin", p.Name()),
		attribute.String("sentinel.plugin_type", p.Type()),
	))
	started := time.Now()
	defer func() {
		span.SetAttributes(attribute.String("sentinel.outcome", outcome.Kind.String()))
		span.End()
		r.metrics.recordTask(ctx, p, task, outcome.Kind, time.Since(started))
	}()

	defer func() {
		if recovered := recover(); recovered != nil {
			err, ok := recovered.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", recovered)
			}
			outcome = r.fault(p, task, err, debug.Stack())
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	fn, ok := p.Task(task)
	if !ok {
		return Outcome{Kind: KindOK}
	}

	r.hooks.Notify(ctx, p.Type(), plugin.EventName(string(task), "begin"), args...)
	value, err := fn(ctx, args...)
	if err != nil {
		if errors.Is(err, plugin.ErrTaskFailed) {
			return r.failed(p, task, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r.fault(p, task, err, nil)
	}
	r.hooks.Notify(ctx, p.Type(), plugin.EventName(string(task), "end"), value)
	return Outcome{Kind: KindOK, Value: value}
}

// RunFirstTaskFound runs the first task of tasks the plugin implements. The
// boolean is false when the plugin implements none of them.
func (r *Runner) RunFirstTaskFound(ctx context.Context, p plugin.Plugin, tasks []plugin.Task, args ...any) (Outcome, bool) {
	for _, task := range tasks {
		if plugin.Implements(p, task) {
			return r.RunSupervisedTask(ctx, p, task, args...), true
		}
	}
	return Outcome{}, false
}

// RunOnChanges dispatches a change batch to the plugins of the default
// scope. The clear policy is evaluated once, before any plugin runs.
func (r *Runner) RunOnChanges(ctx context.Context, modified, added, removed []string) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := r.tracer.Start(ctx, "sentinel.changes", trace.WithAttributes(
		attribute.Int("sentinel.modified", len(modified)),
		attribute.Int("sentinel.added", len(added)),
		attribute.Int("sentinel.removed", len(removed)),
	))
	defer span.End()
	r.metrics.recordBatch(ctx)

	r.ui.MarkClearable()
	if r.clearPolicy() {
		r.ui.Clear()
	}

	categories := []struct {
		paths []string
		tasks []plugin.Task
	}{
		{modified, modificationTasks},
		{added, additionTasks},
		{removed, removalTasks},
	}
	for _, p := range r.ScopedPlugins(r.Scope()) {
		for _, category := range categories {
			if r.dispatch(ctx, p, category.paths, category.tasks) != KindHalt {
				continue
			}
			span.AddEvent("sentinel.halt", trace.WithAttributes(attribute.String("sentinel.plugin", p.Name())))
			r.logger.Info("change dispatch halted", map[string]string{
				"plugin": p.Name(),
			})
			return
		}
	}
}

// DeprecationWarnings reports plugins implementing the legacy change tasks.
func (r *Runner) DeprecationWarnings() {
	for _, p := range r.registry.Plugins() {
		if plugin.Implements(p, plugin.TaskRunOnChange) {
			r.ui.Deprecation(fmt.Sprintf(runOnChangeDeprecation, p.Name()))
		}
		if plugin.Implements(p, plugin.TaskRunOnDeletion) {
			r.ui.Deprecation(fmt.Sprintf(runOnDeletionDeprecation, p.Name()))
		}
	}
}

// dispatch runs the first implemented task of tasks with the paths p
// matches and returns the outcome kind; KindOK when nothing ran.
func (r *Runner) dispatch(ctx context.Context, p plugin.Plugin, paths []string, tasks []plugin.Task) Kind {
	if len(paths) == 0 || !r.registry.Contains(p) {
		return KindOK
	}
	matched := match.Match(p, paths)
	if len(matched) == 0 {
		return KindOK
	}
	outcome, _ := r.RunFirstTaskFound(ctx, p, tasks, matched)
	return outcome.Kind
}

func (r *Runner) failed(p plugin.Plugin, task plugin.Task, err error) Outcome {
	group := r.registry.Group(p.Group())
	fields := map[string]string{
		"plugin": p.Name(),
		"task":   string(task),
		"group":  p.Group(),
		"error":  err.Error(),
	}
	if group.HaltOnFail() {
		r.logger.Debug("task failed, halting group", fields)
		return Outcome{Kind: KindHalt, Err: err}
	}
	r.logger.Debug("task failed", fields)
	return Outcome{Kind: KindContinue, Err: err}
}

func (r *Runner) fault(p plugin.Plugin, task plugin.Task, err error, stack []byte) Outcome {
	fault := &Fault{Plugin: p.Name(), Task: task, Err: err, Stack: stack}
	r.metrics.recordFault(p)
	r.ui.Error(fmt.Sprintf("%s failed to achieve its <%s>, exception was:\n%v", p.Name(), task, err))
	r.registry.Remove(p)
	r.ui.Info(fmt.Sprintf("%s has just been fired", p.Name()))
	r.logger.Error("plugin removed after fault", map[string]string{
		"plugin": p.Name(),
		"task":   string(task),
		"error":  err.Error(),
	})
	return Outcome{Kind: KindFaulted, Value: fault, Err: fault}
}

func (r *Runner) record(report *Report, p plugin.Plugin, outcome Outcome) {
	report.Ran = append(report.Ran, p.Name())
	switch outcome.Kind {
	case KindContinue:
		report.Failed = append(report.Failed, p.Name())
	case KindHalt:
		report.Failed = append(report.Failed, p.Name())
		report.HaltedBy = p.Name()
	case KindFaulted:
		report.Removed = append(report.Removed, p.Name())
	}
}

type instruments struct {
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
	batches  metric.Int64Counter
	faults   metric.Int64Counter
}

func newInstruments(meter metric.Meter, logger *logging.Logger) instruments {
	var errs []error
	tasks, err := meter.Int64Counter(sentinelotel.MetricTaskCount,
		metric.WithDescription("Supervised task invocations by outcome."))
	errs = append(errs, err)
	duration, err := meter.Float64Histogram(sentinelotel.MetricTaskDuration,
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sentinelotel.TaskDurationBuckets...))
	errs = append(errs, err)
	batches, err := meter.Int64Counter(sentinelotel.MetricBatchCount,
		metric.WithDescription("Change batches dispatched."))
	errs = append(errs, err)
	faults, err := meter.Int64Counter(sentinelotel.MetricPluginFaults,
		metric.WithDescription("Plugins removed after a fault."))
	errs = append(errs, err)
	if joined := errors.Join(errs...); joined != nil {
		logger.Warn("runner metrics unavailable", map[string]string{"error": joined.Error()})
	}
	return instruments{tasks: tasks, duration: duration, batches: batches, faults: faults}
}

func (m instruments) recordTask(ctx context.Context, p plugin.Plugin, task plugin.Task, kind Kind, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("sentinel.task", string(task)),
		attribute.String("sentinel.plugin_type", p.Type()),
		attribute.String("sentinel.outcome", kind.String()),
	)
	if m.tasks != nil {
		m.tasks.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (m instruments) recordBatch(ctx context.Context) {
	if m.batches != nil {
		m.batches.Add(ctx, 1)
	}
}

func (m instruments) recordFault(p plugin.Plugin) {
	if m.faults != nil {
		m.faults.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sentinel.plugin_type", p.Type())))
	}
}

// logUI reports through the logger when no UI is configured.
type logUI struct {
	logger *logging.Logger
}

func (u logUI) Error(message string)       { u.logger.Error(message, nil) }
func (u logUI) Info(message string)        { u.logger.Info(message, nil) }
func (u logUI) Deprecation(message string) { u.logger.Warn(message, nil) }
func (u logUI) MarkClearable()             {}
func (u logUI) Clear()                     {}
