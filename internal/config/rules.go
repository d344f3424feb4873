package config

import (
	"regexp"

	"sentinel/internal/plugin"
)

// Rules converts watch declarations into matcher rules in declaration
// order. A regex with replace passes the expanded template to the task
// instead of the path.
func (p Plugin) Rules() ([]plugin.Rule, error) {
	rules := make([]plugin.Rule, 0, len(p.Watch))
	for _, watch := range p.Watch {
		rule, err := watch.Rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (w Watch) Rule() (plugin.Rule, error) {
	if w.Regex == "" {
		return plugin.Glob(w.Pattern, nil), nil
	}
	if w.Replace == "" {
		return plugin.Regex(w.Regex, nil)
	}
	compiled, err := regexp.Compile(w.Regex)
	if err != nil {
		return plugin.Rule{}, err
	}
	template := w.Replace
	return plugin.Regex(w.Regex, func(path string, _ []string) any {
		match := compiled.FindStringSubmatchIndex(path)
		if match == nil {
			return path
		}
		return string(compiled.ExpandString(nil, template, path, match))
	})
}

// Spec builds the plugin.Spec for this declaration.
func (p Plugin) Spec() (plugin.Spec, error) {
	rules, err := p.Rules()
	if err != nil {
		return plugin.Spec{}, err
	}
	options := make(map[string]any, len(p.Options))
	for key, value := range p.Options {
		options[key] = value
	}
	return plugin.Spec{
		Type:    p.Type,
		Name:    p.InstanceName(),
		Group:   p.Group,
		Rules:   rules,
		Options: options,
	}, nil
}

// GroupOptions returns the option map the registry stores for a group.
func (g Group) GroupOptions() map[string]any {
	return map[string]any{plugin.OptionHaltOnFail: g.HaltOnFail}
}
