package plugins

import (
	"fmt"

	"sentinel/internal/config"
	"sentinel/internal/hook"
	"sentinel/internal/plugin"
)

type hookAware interface {
	SetHooks(hooks plugin.HookNotifier)
}

// Install registers the groups, plugins and callbacks of a config file. It
// stops at the first plugin that cannot be built; what was registered
// before stays registered.
func Install(file *config.File, registry *plugin.Registry, hooks *hook.Registry, deps Deps) error {
	if file == nil {
		return nil
	}
	deps = deps.withDefaults()
	if deps.ConfigPath == "" {
		deps.ConfigPath = file.Path
	}
	for _, group := range file.Groups {
		registry.AddGroup(group.Name, group.GroupOptions())
	}
	for _, declared := range file.Plugins {
		spec, err := declared.Spec()
		if err != nil {
			return fmt.Errorf("plugin %s: %w", declared.InstanceName(), err)
		}
		built, err := Build(spec, deps)
		if err != nil {
			return fmt.Errorf("plugin %s: %w", declared.InstanceName(), err)
		}
		if aware, ok := built.(hookAware); ok {
			aware.SetHooks(hooks)
		}
		if err := registry.Add(built); err != nil {
			return fmt.Errorf("plugin %s: %w", declared.InstanceName(), err)
		}
		for _, callback := range declared.Callbacks {
			listener := &hook.CommandListener{
				Command: callback.Command,
				Output:  deps.Output,
				Logger:  deps.Logger,
			}
			hooks.AddCallback(listener, built.Type(), callback.Events...)
		}
	}
	return nil
}
