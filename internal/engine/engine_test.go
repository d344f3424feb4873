package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"sentinel/internal/hook"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/watcher"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingUI struct {
	mu            sync.Mutex
	errors        []string
	infos         []string
	notifications []notify.Details
	cleared       int
}

func (u *recordingUI) Error(message string) {
	u.mu.Lock()
	u.errors = append(u.errors, message)
	u.mu.Unlock()
}

func (u *recordingUI) Info(message string) {
	u.mu.Lock()
	u.infos = append(u.infos, message)
	u.mu.Unlock()
}

func (u *recordingUI) Deprecation(string) {}
func (u *recordingUI) MarkClearable()     {}

func (u *recordingUI) Clear() {
	u.mu.Lock()
	u.cleared++
	u.mu.Unlock()
}

func (u *recordingUI) Notify(_ string, details notify.Details) {
	u.mu.Lock()
	u.notifications = append(u.notifications, details)
	u.mu.Unlock()
}

type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	j.calls = append(j.calls, call)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

// recordingPlugin logs every lifecycle task it runs.
func recordingPlugin(name, group string, log *journal) *plugin.Base {
	base := plugin.NewBase(plugin.Spec{Type: name, Group: group, Rules: []plugin.Rule{plugin.Glob("*.go", nil)}})
	for _, task := range []plugin.Task{plugin.TaskStart, plugin.TaskStop, plugin.TaskRunAll, plugin.TaskReload, plugin.TaskRunOnChanges} {
		task := task
		base.Handle(task, func(context.Context, ...any) (any, error) {
			log.add(name + ":" + string(task))
			return nil, nil
		})
	}
	return base
}

func newEngine(t *testing.T, loader Loader) (*Engine, *recordingUI) {
	t.Helper()
	ui := &recordingUI{}
	engine := New(Options{UI: ui, Loader: loader})
	return engine, ui
}

func TestLoadRequiresPlugins(t *testing.T) {
	engine, _ := newEngine(t, nil)
	if err := engine.Load(); !errors.Is(err, ErrNoPlugins) {
		t.Fatalf("expected ErrNoPlugins, got %v", err)
	}
}

func TestStartStopRunAll(t *testing.T) {
	log := &journal{}
	engine, _ := newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		return registry.Add(recordingPlugin("a", "", log))
	})
	if err := engine.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	engine.Start(context.Background())
	report := engine.RunAll(context.Background(), plugin.Scope{})
	engine.Stop(context.Background())

	want := []string{"a:start", "a:run_all", "a:stop"}
	if !reflect.DeepEqual(log.list(), want) {
		t.Fatalf("expected %v, got %v", want, log.list())
	}
	if !reflect.DeepEqual(report.Ran, []string{"a"}) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDispatchRunsChangesAndDropsWhilePaused(t *testing.T) {
	log := &journal{}
	engine, ui := newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		return registry.Add(recordingPlugin("a", "", log))
	})
	_ = engine.Load()

	if !engine.Dispatch(context.Background(), watcher.Batch{Modified: []string{"main.go"}}) {
		t.Fatalf("expected dispatch to run")
	}
	engine.Pause()
	if engine.Dispatch(context.Background(), watcher.Batch{Modified: []string{"main.go"}}) {
		t.Fatalf("expected dispatch to be dropped while paused")
	}
	if !engine.Paused() {
		t.Fatalf("expected paused")
	}
	if engine.TogglePause() {
		t.Fatalf("expected toggle to resume")
	}
	if engine.Dispatch(context.Background(), watcher.Batch{}) {
		t.Fatalf("expected empty batch to be skipped")
	}

	if !reflect.DeepEqual(log.list(), []string{"a:run_on_changes"}) {
		t.Fatalf("unexpected calls %v", log.list())
	}
	if len(ui.notifications) != 2 || ui.notifications[0].Image != "pending" || ui.notifications[1].Image != "success" {
		t.Fatalf("expected pause and resume notifications, got %+v", ui.notifications)
	}
}

func TestReloadRebuildsRegistry(t *testing.T) {
	log := &journal{}
	generation := 0
	engine, ui := newEngine(t, func(registry *plugin.Registry, hooks *hook.Registry) error {
		generation++
		name := "first"
		if generation > 1 {
			name = "second"
		}
		hooks.AddCallback(hook.ListenerFunc(func(context.Context, string, string, ...any) {}), name, "start_end")
		return registry.Add(recordingPlugin(name, "custom", log))
	})
	if err := engine.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	engine.SetScope(plugin.Scope{Groups: []*plugin.Group{engine.Registry().Group("custom")}})

	if err := engine.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	want := []string{"first:stop", "second:start"}
	if !reflect.DeepEqual(log.list(), want) {
		t.Fatalf("expected %v, got %v", want, log.list())
	}
	if engine.Registry().Find("first") != nil || engine.Registry().Find("second") == nil {
		t.Fatalf("expected registry to hold only the new plugin")
	}
	if engine.Hooks().Len() != 1 {
		t.Fatalf("expected hooks to be reset before reload, got %d", engine.Hooks().Len())
	}
	if !engine.Scope().Empty() {
		t.Fatalf("expected scope reset on reload")
	}
	last := ui.notifications[len(ui.notifications)-1]
	if last.Image != "success" {
		t.Fatalf("expected success notification, got %+v", last)
	}
}

func TestReloadWithoutPluginsReportsError(t *testing.T) {
	log := &journal{}
	calls := 0
	engine, ui := newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		calls++
		if calls == 1 {
			return registry.Add(recordingPlugin("a", "", log))
		}
		return nil
	})
	_ = engine.Load()

	err := engine.Reload(context.Background())
	if !errors.Is(err, ErrNoPlugins) {
		t.Fatalf("expected ErrNoPlugins, got %v", err)
	}
	if len(ui.errors) != 1 {
		t.Fatalf("expected one error message, got %v", ui.errors)
	}
	if last := ui.notifications[len(ui.notifications)-1]; last.Image != "failed" {
		t.Fatalf("expected failed notification, got %+v", last)
	}
	if !reflect.DeepEqual(log.list(), []string{"a:stop"}) {
		t.Fatalf("expected only the stop of the old plugin, got %v", log.list())
	}
}

func TestReloadPluginsUsesDefaultScope(t *testing.T) {
	log := &journal{}
	engine, _ := newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		if err := registry.Add(recordingPlugin("a", "front", log)); err != nil {
			return err
		}
		return registry.Add(recordingPlugin("b", "back", log))
	})
	_ = engine.Load()
	engine.SetScope(plugin.Scope{Groups: []*plugin.Group{engine.Registry().Group("back")}})

	engine.ReloadPlugins(context.Background(), plugin.Scope{})

	if !reflect.DeepEqual(log.list(), []string{"b:reload"}) {
		t.Fatalf("expected only b to reload, got %v", log.list())
	}
}

func TestRunTaskHonorsExplicitScope(t *testing.T) {
	log := &journal{}
	engine, _ := newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		if err := registry.Add(recordingPlugin("a", "", log)); err != nil {
			return err
		}
		return registry.Add(recordingPlugin("b", "", log))
	})
	_ = engine.Load()

	report := engine.RunTask(context.Background(), plugin.TaskStop, plugin.Scope{Plugins: []plugin.Plugin{engine.Registry().Find("b")}})

	if !reflect.DeepEqual(log.list(), []string{"b:stop"}) {
		t.Fatalf("expected only b to stop, got %v", log.list())
	}
	if !reflect.DeepEqual(report.Ran, []string{"b"}) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRequestReloadFromInsideDispatch(t *testing.T) {
	var engine *Engine
	engine, _ = newEngine(t, func(registry *plugin.Registry, _ *hook.Registry) error {
		base := plugin.NewBase(plugin.Spec{Type: "reload", Rules: []plugin.Rule{plugin.Glob("Sentinelfile.toml", nil)}})
		base.Handle(plugin.TaskRunOnChanges, func(context.Context, ...any) (any, error) {
			engine.RequestReload()
			engine.RequestReload()
			return nil, nil
		})
		return registry.Add(base)
	})
	_ = engine.Load()

	done := make(chan struct{})
	go func() {
		engine.Dispatch(context.Background(), watcher.Batch{Modified: []string{"Sentinelfile.toml"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch deadlocked")
	}

	select {
	case <-engine.Reloads():
	default:
		t.Fatalf("expected a queued reload")
	}
	select {
	case <-engine.Reloads():
		t.Fatalf("expected requests to coalesce")
	default:
	}
}

func TestDispatchTagsBatchSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	log := &journal{}
	engine := New(Options{
		UI:     &recordingUI{},
		Tracer: provider.Tracer("test"),
		Loader: func(registry *plugin.Registry, _ *hook.Registry) error {
			return registry.Add(recordingPlugin("a", "", log))
		},
	})
	_ = engine.Load()

	engine.Dispatch(context.Background(), watcher.Batch{Modified: []string{"main.go"}})
	engine.Dispatch(context.Background(), watcher.Batch{Added: []string{"new.go"}})

	ids := map[string]bool{}
	for _, span := range recorder.Ended() {
		if span.Name() != "sentinel.dispatch" {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key != "sentinel.batch.id" {
				continue
			}
			if _, err := uuid.Parse(attr.Value.AsString()); err != nil {
				t.Fatalf("expected a uuid batch id, got %q", attr.Value.AsString())
			}
			ids[attr.Value.AsString()] = true
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct batch ids, got %v", ids)
	}
}
