package plugin

import (
	"context"
	"errors"
	"testing"
)

type recordedHook struct {
	pluginType string
	event      string
	args       []any
}

type hookRecorder struct {
	calls []recordedHook
}

func (h *hookRecorder) Notify(_ context.Context, pluginType, event string, args ...any) {
	h.calls = append(h.calls, recordedHook{pluginType: pluginType, event: event, args: args})
}

func TestNewBaseDefaults(t *testing.T) {
	base := NewBase(Spec{Type: "shell"})
	if base.Name() != "shell" {
		t.Fatalf("expected name to default to type, got %q", base.Name())
	}
	if base.Group() != DefaultGroup {
		t.Fatalf("expected default group, got %q", base.Group())
	}
	if base.Options() == nil {
		t.Fatalf("expected non-nil options")
	}
}

func TestBaseTaskCapability(t *testing.T) {
	base := NewBase(Spec{Type: "dummy"})
	if Implements(base, TaskStart) {
		t.Fatalf("expected start to be unimplemented")
	}
	base.Handle(TaskStart, func(context.Context, ...any) (any, error) { return "ok", nil })
	if !Implements(base, TaskStart) {
		t.Fatalf("expected start to be implemented")
	}
	base.Handle(TaskStart, nil)
	if Implements(base, TaskStart) {
		t.Fatalf("expected start to be unregistered")
	}
}

func TestBaseHookPhase(t *testing.T) {
	recorder := &hookRecorder{}
	base := NewBase(Spec{Type: "dummy"})
	base.SetHooks(recorder)

	base.HookPhase(context.Background(), TaskRunAll, "begin")
	base.Hook(context.Background(), "special_sauce", "first_arg", "second_arg")

	if len(recorder.calls) != 2 {
		t.Fatalf("expected 2 hook calls, got %d", len(recorder.calls))
	}
	if recorder.calls[0].event != "run_all_begin" || recorder.calls[0].pluginType != "dummy" {
		t.Fatalf("unexpected first hook %+v", recorder.calls[0])
	}
	if recorder.calls[1].event != "special_sauce" || len(recorder.calls[1].args) != 2 {
		t.Fatalf("unexpected second hook %+v", recorder.calls[1])
	}
}

func TestEventName(t *testing.T) {
	cases := map[[2]string]string{
		{"start", "begin"}: "start_begin",
		{"start", ""}:      "start",
		{"", "end"}:        "end",
	}
	for input, expected := range cases {
		if got := EventName(input[0], input[1]); got != expected {
			t.Fatalf("EventName(%q, %q) = %q, want %q", input[0], input[1], got, expected)
		}
	}
}

func TestParseTask(t *testing.T) {
	task, ok := ParseTask(" Run_All ")
	if !ok || task != TaskRunAll {
		t.Fatalf("expected run_all, got %q (%v)", task, ok)
	}
	if _, ok := ParseTask("explode"); ok {
		t.Fatalf("expected unknown task to be rejected")
	}
}

func TestFailedWrapsTaskFailed(t *testing.T) {
	err := Failed("specs are red")
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("expected ErrTaskFailed, got %v", err)
	}
	if err.Error() != "specs are red" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(Failed(""), ErrTaskFailed) {
		t.Fatalf("expected empty failure to be ErrTaskFailed")
	}
}

func TestRuleGlob(t *testing.T) {
	rule := Glob("*.rb", nil)
	if _, ok := rule.Match("a.rb"); !ok {
		t.Fatalf("expected a.rb to match")
	}
	if _, ok := rule.Match("lib/a.rb"); !ok {
		t.Fatalf("expected lib/a.rb to match by base name")
	}
	if _, ok := rule.Match("b.txt"); ok {
		t.Fatalf("expected b.txt not to match")
	}

	nested := Glob("spec/*.rb", nil)
	if _, ok := nested.Match("lib/a.rb"); ok {
		t.Fatalf("expected nested glob to require its directory")
	}
	if _, ok := nested.Match("spec/a.rb"); !ok {
		t.Fatalf("expected spec/a.rb to match")
	}
}

func TestRuleRegexCaptures(t *testing.T) {
	rule := MustRegex(`^lib/(.+)\.rb$`, func(path string, captures []string) any {
		return "spec/" + captures[1] + "_spec.rb"
	})
	captures, ok := rule.Match("lib/foo.rb")
	if !ok {
		t.Fatalf("expected lib/foo.rb to match")
	}
	if got := rule.Apply("lib/foo.rb", captures); got != "spec/foo_spec.rb" {
		t.Fatalf("expected spec/foo_spec.rb, got %v", got)
	}
	if _, err := Regex("(", nil); err == nil {
		t.Fatalf("expected invalid regex to fail")
	}
}

func TestStringAndBoolOptions(t *testing.T) {
	base := NewBase(Spec{Type: "shell", Options: map[string]any{"command": "make", "tty": true, "bad": 3}})
	if got := StringOption(base, "command", ""); got != "make" {
		t.Fatalf("expected make, got %q", got)
	}
	if got := StringOption(base, "bad", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if !BoolOption(base, "tty", false) {
		t.Fatalf("expected tty true")
	}
}
