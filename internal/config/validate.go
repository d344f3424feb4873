package config

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"sentinel/internal/plugin"
)

// ValidationError names the offending setting. Key and Value locate its
// line in the source file.
type ValidationError struct {
	Path    string
	Key     string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var notificationTypes = map[string]struct{}{
	"file":    {},
	"command": {},
	"title":   {},
}

// Validate checks the file and reports the first problem found.
func (f *File) Validate() error {
	if f == nil {
		return nil
	}
	if debounce := strings.TrimSpace(f.Options.Debounce); debounce != "" {
		duration, err := time.ParseDuration(debounce)
		if err != nil || duration < 0 {
			return &ValidationError{Path: "options.debounce", Key: "debounce", Value: debounce, Message: "expected a duration such as 100ms"}
		}
	}
	for index, expr := range f.Options.Ignore {
		if _, err := regexp.Compile(expr); err != nil {
			return &ValidationError{Path: fmt.Sprintf("options.ignore[%d]", index), Key: "ignore", Message: err.Error()}
		}
	}

	groups := map[string]struct{}{plugin.DefaultGroup: {}}
	for index, group := range f.Groups {
		name := strings.ToLower(strings.TrimSpace(group.Name))
		where := fmt.Sprintf("group[%d].name", index)
		if name == "" {
			return &ValidationError{Path: where, Key: "name", Message: "group name is required"}
		}
		if _, dup := groups[name]; dup && name != plugin.DefaultGroup {
			return &ValidationError{Path: where, Key: "name", Value: group.Name, Message: fmt.Sprintf("duplicate group %q", group.Name)}
		}
		groups[name] = struct{}{}
	}

	names := map[string]struct{}{}
	for index, p := range f.Plugins {
		if err := p.validate(fmt.Sprintf("plugin[%d]", index)); err != nil {
			return err
		}
		name := strings.ToLower(p.InstanceName())
		if _, dup := names[name]; dup {
			return &ValidationError{
				Path:    fmt.Sprintf("plugin[%d].name", index),
				Key:     "name",
				Value:   p.InstanceName(),
				Message: fmt.Sprintf("duplicate plugin name %q; set name to tell them apart", p.InstanceName()),
			}
		}
		names[name] = struct{}{}
	}

	for index, n := range f.Notifications {
		where := fmt.Sprintf("notification[%d]", index)
		kind := strings.ToLower(strings.TrimSpace(n.Type))
		if _, ok := notificationTypes[kind]; !ok {
			return &ValidationError{Path: where + ".type", Key: "type", Value: n.Type, Message: "expected one of file, command, title"}
		}
		if kind == "file" && strings.TrimSpace(n.Path) == "" {
			return &ValidationError{Path: where + ".path", Key: "type", Value: n.Type, Message: "path is required for file notifications"}
		}
		if kind == "command" && strings.TrimSpace(n.Command) == "" {
			return &ValidationError{Path: where + ".command", Key: "type", Value: n.Type, Message: "command is required for command notifications"}
		}
	}
	return nil
}

// InstanceName is the registry name: Name, or Type when unset.
func (p Plugin) InstanceName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.Type)
}

func (p Plugin) validate(where string) error {
	if strings.TrimSpace(p.Type) == "" {
		return &ValidationError{Path: where + ".type", Key: "type", Message: "plugin type is required"}
	}
	for index, watch := range p.Watch {
		if err := watch.validate(fmt.Sprintf("%s.watch[%d]", where, index)); err != nil {
			return err
		}
	}
	for index, callback := range p.Callbacks {
		at := fmt.Sprintf("%s.callback[%d]", where, index)
		if len(callback.Events) == 0 {
			return &ValidationError{Path: at + ".events", Key: "events", Message: "at least one event is required"}
		}
		if strings.TrimSpace(callback.Command) == "" {
			return &ValidationError{Path: at + ".command", Key: "command", Message: "command is required"}
		}
	}
	return nil
}

func (w Watch) validate(where string) error {
	hasPattern := strings.TrimSpace(w.Pattern) != ""
	hasRegex := strings.TrimSpace(w.Regex) != ""
	switch {
	case hasPattern == hasRegex:
		key := "pattern"
		if !hasPattern {
			key = "watch"
		}
		return &ValidationError{Path: where, Key: key, Message: "set exactly one of pattern or regex"}
	case hasPattern:
		if _, err := path.Match(w.Pattern, ""); err != nil {
			return &ValidationError{Path: where + ".pattern", Key: "pattern", Value: w.Pattern, Message: err.Error()}
		}
		if w.Replace != "" {
			return &ValidationError{Path: where + ".replace", Key: "replace", Value: w.Replace, Message: "replace requires regex"}
		}
	default:
		if _, err := regexp.Compile(w.Regex); err != nil {
			return &ValidationError{Path: where + ".regex", Key: "regex", Message: err.Error()}
		}
	}
	return nil
}
