package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTOML = `
[options]
debounce = "250ms"
clear = true
ignore = ["\\.log$"]

[[group]]
name = "backend"
halt_on_fail = true

[[plugin]]
type = "shell"
group = "backend"

[plugin.options]
command = "go test {paths}"

[[plugin.watch]]
pattern = "*.go"

[[plugin.watch]]
regex = "^lib/(.+)\\.rb$"
replace = "spec/${1}_spec.rb"

[[plugin.callback]]
events = ["run_on_changes_end"]
command = "echo done"

[[notification]]
type = "file"
path = "/tmp/sentinel-status"
`

const sampleYAML = `
options:
  debounce: 1s
  notify: false
group:
  - name: frontend
plugin:
  - type: shell
    name: lint
    group: frontend
    options:
      command: eslint
      tty: true
    watch:
      - pattern: "*.js"
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Sentinelfile.toml", sampleTOML)

	file, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Path != path {
		t.Fatalf("expected path %q, got %q", path, file.Path)
	}
	if file.Options.DebounceDuration() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce %v", file.Options.DebounceDuration())
	}
	if file.Options.Clear == nil || !*file.Options.Clear {
		t.Fatalf("expected clear=true")
	}
	if len(file.Groups) != 1 || !file.Groups[0].HaltOnFail {
		t.Fatalf("unexpected groups %+v", file.Groups)
	}
	if len(file.Plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(file.Plugins))
	}
	p := file.Plugins[0]
	if p.InstanceName() != "shell" || p.Options["command"] != "go test {paths}" {
		t.Fatalf("unexpected plugin %+v", p)
	}
	if len(p.Watch) != 2 || len(p.Callbacks) != 1 {
		t.Fatalf("unexpected watch/callbacks %+v", p)
	}
	if len(file.Notifications) != 1 || file.Notifications[0].Type != "file" {
		t.Fatalf("unexpected notifications %+v", file.Notifications)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Sentinelfile.yml", sampleYAML)

	file, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Options.Notify == nil || *file.Options.Notify {
		t.Fatalf("expected notify=false")
	}
	if file.Options.DebounceDuration() != time.Second {
		t.Fatalf("unexpected debounce")
	}
	p := file.Plugins[0]
	if p.InstanceName() != "lint" || p.Options["tty"] != true {
		t.Fatalf("unexpected plugin %+v", p)
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	file, err := LoadBytes("Sentinelfile.yaml", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(file.Plugins) != 0 {
		t.Fatalf("expected no plugins")
	}
}

func TestLoadRejectsUnknownTOMLKey(t *testing.T) {
	_, err := LoadBytes("Sentinelfile.toml", []byte("[options]\ndebounse = \"1s\"\n"))
	if err == nil || !strings.Contains(err.Error(), "options.debounse") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadAllowsFreeFormPluginOptions(t *testing.T) {
	data := "[[plugin]]\ntype = \"shell\"\n[plugin.options]\nanything = 1\n[plugin.options.nested]\nkey = \"v\"\n"
	if _, err := LoadBytes("Sentinelfile.toml", []byte(data)); err != nil {
		t.Fatalf("expected options to accept any key, got %v", err)
	}
}

func TestLoadRejectsUnknownYAMLKey(t *testing.T) {
	if _, err := LoadBytes("Sentinelfile.yaml", []byte("plugins:\n  - type: shell\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoadJSONCWithComments(t *testing.T) {
	data := `{
  // shared settings
  "options": {"debounce": "50ms", "watch_dirs": ["src"]},
  "plugin": [
    {
      "type": "shell",
      "options": {"command": "make"}, /* trailing comma below */
      "watch": [{"pattern": "*.c"},],
    },
  ],
}
`
	file, err := LoadBytes("Sentinelfile.jsonc", []byte(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Options.DebounceDuration() != 50*time.Millisecond {
		t.Fatalf("unexpected debounce %q", file.Options.Debounce)
	}
	if len(file.Plugins) != 1 || file.Plugins[0].Watch[0].Pattern != "*.c" {
		t.Fatalf("unexpected plugins %+v", file.Plugins)
	}
}

func TestLoadRejectsUnknownJSONKey(t *testing.T) {
	if _, err := LoadBytes("Sentinelfile.json", []byte(`{"plugins": []}`)); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoadReportsJSONSyntaxLine(t *testing.T) {
	data := "{\n  // comment\n  \"options\": {\"clear\": tru}\n}\n"
	_, err := LoadBytes("Sentinelfile.jsonc", []byte(data))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error on line 3, got %v", err)
	}
}

func TestLoadReportsTOMLSyntaxPosition(t *testing.T) {
	_, err := LoadBytes("Sentinelfile.toml", []byte("[options\n"))
	if err == nil || !strings.Contains(err.Error(), "line ") {
		t.Fatalf("expected positioned parse error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	if _, err := LoadBytes("Sentinelfile.ini", []byte("{}")); err == nil {
		t.Fatalf("expected extension error")
	}
}

func TestValidationErrorNamesLine(t *testing.T) {
	data := "[[plugin]]\ntype = \"shell\"\n\n[[plugin.watch]]\nregex = \"(\"\n"
	_, err := LoadBytes("Sentinelfile.toml", []byte(data))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Path != "plugin[0].watch[0].regex" {
		t.Fatalf("unexpected path %q", vErr.Path)
	}
	if !strings.HasPrefix(err.Error(), "Sentinelfile.toml:5:") {
		t.Fatalf("expected line 5 in %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		file File
		path string
	}{
		{"bad debounce", File{Options: Options{Debounce: "soon"}}, "options.debounce"},
		{"bad ignore", File{Options: Options{Ignore: []string{"("}}}, "options.ignore[0]"},
		{"group without name", File{Groups: []Group{{}}}, "group[0].name"},
		{"duplicate group", File{Groups: []Group{{Name: "a"}, {Name: "A"}}}, "group[1].name"},
		{"plugin without type", File{Plugins: []Plugin{{}}}, "plugin[0].type"},
		{"duplicate plugin", File{Plugins: []Plugin{{Type: "shell"}, {Type: "shell"}}}, "plugin[1].name"},
		{"watch without pattern", File{Plugins: []Plugin{{Type: "shell", Watch: []Watch{{}}}}}, "plugin[0].watch[0]"},
		{"watch with both", File{Plugins: []Plugin{{Type: "shell", Watch: []Watch{{Pattern: "*", Regex: "x"}}}}}, "plugin[0].watch[0]"},
		{"bad glob", File{Plugins: []Plugin{{Type: "shell", Watch: []Watch{{Pattern: "["}}}}}, "plugin[0].watch[0].pattern"},
		{"replace without regex", File{Plugins: []Plugin{{Type: "shell", Watch: []Watch{{Pattern: "*", Replace: "x"}}}}}, "plugin[0].watch[0].replace"},
		{"callback without events", File{Plugins: []Plugin{{Type: "shell", Callbacks: []Callback{{Command: "x"}}}}}, "plugin[0].callback[0].events"},
		{"callback without command", File{Plugins: []Plugin{{Type: "shell", Callbacks: []Callback{{Events: []string{"start_end"}}}}}}, "plugin[0].callback[0].command"},
		{"unknown notification", File{Notifications: []Notification{{Type: "growl"}}}, "notification[0].type"},
		{"file notification without path", File{Notifications: []Notification{{Type: "file"}}}, "notification[0].path"},
		{"command notification without command", File{Notifications: []Notification{{Type: "command"}}}, "notification[0].command"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.file.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Path != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, vErr.Path)
			}
		})
	}
	named := File{Plugins: []Plugin{{Type: "shell"}, {Type: "shell", Name: "second"}}}
	if err := named.Validate(); err != nil {
		t.Fatalf("expected distinct names to validate, got %v", err)
	}
}

func TestDefaultPathPrefersLocalFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".sentinel"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	homeFile := writeFile(t, filepath.Join(home, ".sentinel"), "Sentinelfile.yaml", "")
	dir := t.TempDir()

	got, err := DefaultPath(dir)
	if err != nil || got != homeFile {
		t.Fatalf("expected home file %q, got %q (%v)", homeFile, got, err)
	}

	local := writeFile(t, dir, "Sentinelfile.toml", "")
	got, err = DefaultPath(dir)
	if err != nil || got != local {
		t.Fatalf("expected local file %q, got %q (%v)", local, got, err)
	}
}

func TestDefaultPathNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := DefaultPath(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLineForKey(t *testing.T) {
	data := []byte("# regex = nope\nregex = \"a\"\nregex = \"b\"\n")
	if got := lineForKey(data, "regex", "b"); got != 3 {
		t.Fatalf("expected line 3, got %d", got)
	}
	if got := lineForKey(data, "regex", "zzz"); got != 2 {
		t.Fatalf("expected fallback to line 2, got %d", got)
	}
	jsonData := []byte("{\n  // \"regex\": \"x\"\n  \"regex\": \"(\"\n}\n")
	if got := lineForKey(jsonData, "regex", "("); got != 3 {
		t.Fatalf("expected json line 3, got %d", got)
	}
	if got := lineForKey(data, "", ""); got != 0 {
		t.Fatalf("expected 0 for empty key, got %d", got)
	}
}
