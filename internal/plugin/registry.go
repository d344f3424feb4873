package plugin

import (
	"errors"
	"strings"
	"sync"
)

// DefaultGroup is the group every plugin without an explicit group joins.
const DefaultGroup = "default"

// OptionHaltOnFail is the group option that turns a task failure into a halt
// of the surrounding run.
const OptionHaltOnFail = "halt_on_fail"

var (
	ErrNilPlugin     = errors.New("plugin is nil")
	ErrDuplicateName = errors.New("duplicate plugin name")
)

// Group is a named bucket of plugins sharing a failure policy. Groups do not
// track their plugins; plugins refer to their group by name.
type Group struct {
	Name    string
	Options map[string]any
}

// HaltOnFail reports whether a failing task in this group aborts the run.
func (g *Group) HaltOnFail() bool {
	if g == nil {
		return false
	}
	value, ok := g.Options[OptionHaltOnFail].(bool)
	return ok && value
}

// Scope selects the plugins a task applies to. Explicit plugins win over
// groups; an empty scope means every registered plugin.
type Scope struct {
	Groups  []*Group
	Plugins []Plugin
}

func (s Scope) Empty() bool {
	return len(s.Groups) == 0 && len(s.Plugins) == 0
}

// Registry holds plugins and groups in insertion order.
type Registry struct {
	mu      sync.RWMutex
	groups  []*Group
	plugins []Plugin
}

func NewRegistry() *Registry {
	registry := &Registry{}
	registry.groups = []*Group{newGroup(DefaultGroup, nil)}
	return registry
}

// AddGroup creates a group or merges options into an existing one.
func (r *Registry) AddGroup(name string, options map[string]any) *Group {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGroup
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if group := r.groupLocked(name); group != nil {
		for key, value := range options {
			group.Options[key] = value
		}
		return group
	}
	group := newGroup(name, options)
	r.groups = append(r.groups, group)
	return group
}

func (r *Registry) Group(name string) *Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groupLocked(strings.TrimSpace(name))
}

func (r *Registry) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make([]*Group, len(r.groups))
	copy(groups, r.groups)
	return groups
}

// Add registers a plugin. Its group is created on demand so the invariant
// "every plugin belongs to exactly one group" always holds.
func (r *Registry) Add(p Plugin) error {
	if p == nil {
		return ErrNilPlugin
	}
	groupName := strings.TrimSpace(p.Group())
	if groupName == "" {
		groupName = DefaultGroup
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return ErrDuplicateName
		}
	}
	if r.groupLocked(groupName) == nil {
		r.groups = append(r.groups, newGroup(groupName, nil))
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Remove drops a plugin. Its group is left untouched.
func (r *Registry) Remove(p Plugin) bool {
	if p == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for index, existing := range r.plugins {
		if existing == p {
			r.plugins = append(r.plugins[:index:index], r.plugins[index+1:]...)
			return true
		}
	}
	return false
}

// Plugins returns a snapshot of every plugin in insertion order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugins := make([]Plugin, len(r.plugins))
	copy(plugins, r.plugins)
	return plugins
}

// PluginsInGroups returns the plugins belonging to any of the groups, in
// registry order.
func (r *Registry) PluginsInGroups(groups []*Group) []Plugin {
	names := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		if group != nil {
			names[strings.ToLower(group.Name)] = struct{}{}
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugins := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if _, ok := names[strings.ToLower(p.Group())]; ok {
			plugins = append(plugins, p)
		}
	}
	return plugins
}

// Contains reports whether the plugin is still registered.
func (r *Registry) Contains(p Plugin) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, existing := range r.plugins {
		if existing == p {
			return true
		}
	}
	return false
}

// Find looks a plugin up by name, case-insensitively.
func (r *Registry) Find(name string) Plugin {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Reset drops every plugin and every group except a fresh default group.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = nil
	r.groups = []*Group{newGroup(DefaultGroup, nil)}
}

func (r *Registry) groupLocked(name string) *Group {
	for _, group := range r.groups {
		if strings.EqualFold(group.Name, name) {
			return group
		}
	}
	return nil
}

func newGroup(name string, options map[string]any) *Group {
	merged := make(map[string]any, len(options))
	for key, value := range options {
		merged[key] = value
	}
	return &Group{Name: name, Options: merged}
}
