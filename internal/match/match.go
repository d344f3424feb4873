// Package match maps changed paths to the values a plugin's change tasks
// receive, using the plugin's ordered watch rules.
package match

import (
	"fmt"

	"sentinel/internal/plugin"
)

// Match evaluates every path against the plugin's rules in declaration
// order. The first matching rule wins; its transform result is collected
// even when nil. Output order follows paths and duplicates are kept.
func Match(p plugin.Plugin, paths []string) []any {
	if p == nil || len(paths) == 0 {
		return nil
	}
	rules := p.Rules()
	if len(rules) == 0 {
		return nil
	}
	matched := make([]any, 0, len(paths))
	for _, path := range paths {
		for _, rule := range rules {
			captures, ok := rule.Match(path)
			if !ok {
				continue
			}
			matched = append(matched, rule.Apply(path, captures))
			break
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return matched
}

// Any reports whether at least one path matches one of the plugin's rules.
func Any(p plugin.Plugin, paths []string) bool {
	if p == nil {
		return false
	}
	for _, path := range paths {
		for _, rule := range p.Rules() {
			if _, ok := rule.Match(path); ok {
				return true
			}
		}
	}
	return false
}

// Strings narrows matched values to strings for tasks that work on paths.
// Nil values are dropped and string slices are flattened; other values are
// formatted with fmt.
func Strings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case nil:
		case string:
			out = append(out, typed)
		case []string:
			out = append(out, typed...)
		case fmt.Stringer:
			out = append(out, typed.String())
		default:
			out = append(out, fmt.Sprint(typed))
		}
	}
	return out
}

// Paths extracts the matched values from a task's first argument, accepting
// both []any (what the runner passes) and []string.
func Paths(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	switch typed := args[0].(type) {
	case []any:
		return Strings(typed)
	case []string:
		return typed
	case string:
		return []string{typed}
	default:
		return nil
	}
}
