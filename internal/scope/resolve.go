// Package scope turns scope tokens from the command line or the interactor
// into plugin.Scope values. Resolution never mutates the registry.
package scope

import (
	"strings"

	"sentinel/internal/plugin"
)

// Parse splits a raw scope string on whitespace and commas.
func Parse(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Resolve matches each token against group names first and plugin names
// second, both case-insensitively. Tokens matching neither are returned in
// unknown, in input order. Repeated tokens resolve once.
func Resolve(registry *plugin.Registry, tokens []string) (plugin.Scope, []string) {
	var resolved plugin.Scope
	var unknown []string
	if registry == nil {
		for _, token := range tokens {
			if token = strings.TrimSpace(token); token != "" {
				unknown = append(unknown, token)
			}
		}
		return resolved, unknown
	}
	seenGroups := map[*plugin.Group]struct{}{}
	seenPlugins := map[plugin.Plugin]struct{}{}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if group := registry.Group(token); group != nil {
			if _, ok := seenGroups[group]; !ok {
				seenGroups[group] = struct{}{}
				resolved.Groups = append(resolved.Groups, group)
			}
			continue
		}
		if p := registry.Find(token); p != nil {
			if _, ok := seenPlugins[p]; !ok {
				seenPlugins[p] = struct{}{}
				resolved.Plugins = append(resolved.Plugins, p)
			}
			continue
		}
		unknown = append(unknown, token)
	}
	return resolved, unknown
}

// ResolveExplicit resolves groups and plugins named separately, as given by
// the --group and --plugin flags.
func ResolveExplicit(registry *plugin.Registry, groups, plugins []string) (plugin.Scope, []string) {
	var resolved plugin.Scope
	var unknown []string
	if registry == nil {
		return resolved, append(append(unknown, groups...), plugins...)
	}
	for _, name := range groups {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if group := registry.Group(name); group != nil {
			resolved.Groups = append(resolved.Groups, group)
		} else {
			unknown = append(unknown, name)
		}
	}
	for _, name := range plugins {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if p := registry.Find(name); p != nil {
			resolved.Plugins = append(resolved.Plugins, p)
		} else {
			unknown = append(unknown, name)
		}
	}
	return resolved, unknown
}

// Describe renders a scope for messages, e.g. "backend, rspec" or "all".
func Describe(s plugin.Scope) string {
	if s.Empty() {
		return "all"
	}
	names := make([]string, 0, len(s.Groups)+len(s.Plugins))
	for _, p := range s.Plugins {
		names = append(names, p.Name())
	}
	if len(names) == 0 {
		for _, group := range s.Groups {
			names = append(names, group.Name)
		}
	}
	return strings.Join(names, ", ")
}
