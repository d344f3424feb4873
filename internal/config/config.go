// Package config loads the declarative Sentinelfile (TOML, YAML or JSONC) that
// declares groups, plugins, their watch rules and hook callbacks.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// FileNames are tried in order in each search directory.
var FileNames = []string{"Sentinelfile.toml", "Sentinelfile.yaml", "Sentinelfile.yml", "Sentinelfile.jsonc", "Sentinelfile.json"}

const homeDirName = ".sentinel"

var ErrNotFound = errors.New("no Sentinelfile found")

// File is a decoded Sentinelfile.
type File struct {
	Options       Options        `toml:"options" yaml:"options" json:"options,omitempty"`
	Groups        []Group        `toml:"group" yaml:"group" json:"group,omitempty"`
	Plugins       []Plugin       `toml:"plugin" yaml:"plugin" json:"plugin,omitempty"`
	Notifications []Notification `toml:"notification" yaml:"notification" json:"notification,omitempty"`

	// Path is the file the config was loaded from.
	Path string `toml:"-" yaml:"-" json:"-"`
}

// Options are process-wide settings. Flags and SENTINEL_* variables win
// over values set here.
type Options struct {
	Debounce         string   `toml:"debounce" yaml:"debounce" json:"debounce,omitempty" jsonschema:"description=Debounce window such as 100ms"`
	Clear            *bool    `toml:"clear" yaml:"clear" json:"clear,omitempty"`
	Notify           *bool    `toml:"notify" yaml:"notify" json:"notify,omitempty"`
	WatchDirs        []string `toml:"watch_dirs" yaml:"watch_dirs" json:"watch_dirs,omitempty"`
	Ignore           []string `toml:"ignore" yaml:"ignore" json:"ignore,omitempty" jsonschema:"description=Regular expressions matched against relative paths"`
	IgnoreDirs       []string `toml:"ignore_dirs" yaml:"ignore_dirs" json:"ignore_dirs,omitempty"`
	ShowDeprecations bool     `toml:"show_deprecations" yaml:"show_deprecations" json:"show_deprecations,omitempty"`
}

type Group struct {
	Name       string `toml:"name" yaml:"name" json:"name" jsonschema:"required"`
	HaltOnFail bool   `toml:"halt_on_fail" yaml:"halt_on_fail" json:"halt_on_fail,omitempty"`
}

type Plugin struct {
	Type      string         `toml:"type" yaml:"type" json:"type" jsonschema:"required"`
	Name      string         `toml:"name" yaml:"name" json:"name,omitempty"`
	Group     string         `toml:"group" yaml:"group" json:"group,omitempty"`
	Options   map[string]any `toml:"options" yaml:"options" json:"options,omitempty"`
	Watch     []Watch        `toml:"watch" yaml:"watch" json:"watch,omitempty"`
	Callbacks []Callback     `toml:"callback" yaml:"callback" json:"callback,omitempty"`
}

// Watch is one watch rule: a glob pattern or a regex, optionally with a
// replacement template ($1, ${name}) producing the task argument.
type Watch struct {
	Pattern string `toml:"pattern" yaml:"pattern" json:"pattern,omitempty"`
	Regex   string `toml:"regex" yaml:"regex" json:"regex,omitempty"`
	Replace string `toml:"replace" yaml:"replace" json:"replace,omitempty"`
}

// Callback runs a shell command on plugin lifecycle events.
type Callback struct {
	Events  []string `toml:"events" yaml:"events" json:"events" jsonschema:"required"`
	Command string   `toml:"command" yaml:"command" json:"command" jsonschema:"required"`
}

// Notification declares an extra notification sink.
type Notification struct {
	Type    string   `toml:"type" yaml:"type" json:"type" jsonschema:"enum=file,enum=command,enum=title"`
	Path    string   `toml:"path" yaml:"path" json:"path,omitempty"`
	Command string   `toml:"command" yaml:"command" json:"command,omitempty"`
	Args    []string `toml:"args" yaml:"args" json:"args,omitempty"`
}

// DebounceDuration returns the parsed debounce window, or zero when unset.
// Load has already validated the value.
func (o Options) DebounceDuration() time.Duration {
	duration, err := time.ParseDuration(o.Debounce)
	if err != nil {
		return 0
	}
	return duration
}

// Load reads and validates a Sentinelfile.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(path, data)
}

// LoadBytes decodes data as if read from path; the extension selects the
// format.
func LoadBytes(path string, data []byte) (*File, error) {
	file, err := parseFile(path, data)
	if err != nil {
		return nil, formatParseError(path, err)
	}
	if err := file.Validate(); err != nil {
		return nil, formatValidationError(path, data, err)
	}
	file.Path = path
	return file, nil
}

// DefaultPath looks for a Sentinelfile in dir, then in ~/.sentinel.
func DefaultPath(dir string) (string, error) {
	searchDirs := []string{dir}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		searchDirs = append(searchDirs, filepath.Join(home, homeDirName))
	}
	for _, searchDir := range searchDirs {
		for _, name := range FileNames {
			candidate := filepath.Join(searchDir, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", ErrNotFound
}
