package config

import (
	"encoding/json"
	"strings"
	"testing"

	"sentinel/internal/match"
	"sentinel/internal/plugin"
)

func TestRulesApplyReplaceTemplate(t *testing.T) {
	declared := Plugin{
		Type: "shell",
		Watch: []Watch{
			{Regex: `^lib/(.+)\.rb$`, Replace: "spec/${1}_spec.rb"},
			{Pattern: "*.rb"},
		},
	}
	spec, err := declared.Spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	p := plugin.NewBase(spec)

	got := match.Strings(match.Match(p, []string{"lib/foo.rb", "app.rb", "README.md"}))
	want := []string{"spec/foo_spec.rb", "app.rb"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSpecCopiesOptionsAndDefaults(t *testing.T) {
	declared := Plugin{Type: "shell", Options: map[string]any{"command": "make"}}
	spec, err := declared.Spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	declared.Options["command"] = "changed"
	if spec.Name != "shell" || spec.Options["command"] != "make" {
		t.Fatalf("unexpected spec %+v", spec)
	}
}

func TestGroupOptions(t *testing.T) {
	group := &plugin.Group{Name: "backend", Options: Group{Name: "backend", HaltOnFail: true}.GroupOptions()}
	if !group.HaltOnFail() {
		t.Fatalf("expected halt_on_fail")
	}
}

func TestSchemaDescribesSections(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	properties, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties, got %v", decoded)
	}
	for _, key := range []string{"options", "group", "plugin", "notification"} {
		if _, ok := properties[key]; !ok {
			t.Fatalf("expected %q in schema properties", key)
		}
	}
	if _, ok := properties["Path"]; ok {
		t.Fatalf("expected Path to be excluded")
	}
}
