// Package plugins holds the built-in plugin types and the factory registry
// the config loader builds plugins from.
package plugins

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"sentinel/internal/logging"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/process"
)

var ErrUnknownType = errors.New("unknown plugin type")

// Deps are the process services a plugin may use.
type Deps struct {
	Logger *logging.Logger
	// Output receives command output; defaults to os.Stdout.
	Output io.Writer
	Notify func(message string, details notify.Details)
	// RequestReload asks the engine to reload the configuration once the
	// current dispatch has finished.
	RequestReload func()
	ConfigPath    string
	// Processes tracks running commands so shutdown can stop them.
	Processes *process.Registry
}

// Factory builds a plugin instance from its declaration.
type Factory func(spec plugin.Spec, deps Deps) (plugin.Plugin, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func init() {
	_ = Register(ShellType, NewShell)
	_ = Register(ReloadType, NewReload)
}

// Register installs or replaces the factory for a plugin type.
func Register(pluginType string, factory Factory) error {
	pluginType = normalizeType(pluginType)
	if pluginType == "" {
		return fmt.Errorf("plugin type is required for registration")
	}
	if factory == nil {
		return fmt.Errorf("plugin factory is required")
	}
	factoriesMu.Lock()
	factories[pluginType] = factory
	factoriesMu.Unlock()
	return nil
}

func Lookup(pluginType string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	factory, ok := factories[normalizeType(pluginType)]
	return factory, ok
}

// Types lists registered plugin types, sorted.
func Types() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	types := make([]string, 0, len(factories))
	for name := range factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Build creates a plugin from a spec with the registered factory.
func Build(spec plugin.Spec, deps Deps) (plugin.Plugin, error) {
	factory, ok := Lookup(spec.Type)
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownType, spec.Type, strings.Join(Types(), ", "))
	}
	spec.Type = normalizeType(spec.Type)
	return factory(spec, deps.withDefaults())
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Notify == nil {
		d.Notify = func(string, notify.Details) {}
	}
	if d.RequestReload == nil {
		d.RequestReload = func() {}
	}
	if d.Processes == nil {
		d.Processes = process.NewRegistry()
	}
	return d
}

func normalizeType(pluginType string) string {
	return strings.ToLower(strings.TrimSpace(pluginType))
}
