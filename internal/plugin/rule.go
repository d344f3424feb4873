package plugin

import (
	"errors"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Transform turns a matched path into the value handed to the plugin task.
// captures holds the regexp submatches (index 0 is the whole match); for glob
// rules it holds only the path.
type Transform func(path string, captures []string) any

// Rule decides whether a changed path concerns a plugin.
type Rule struct {
	Pattern   string
	Regexp    *regexp.Regexp
	Transform Transform
}

// Glob builds a rule from a shell glob. A glob without a separator is also
// tried against the base name, so "*.go" matches "internal/a.go".
func Glob(pattern string, transform Transform) Rule {
	return Rule{Pattern: pattern, Transform: transform}
}

// Regex builds a rule from a regular expression.
func Regex(expr string, transform Transform) (Rule, error) {
	if strings.TrimSpace(expr) == "" {
		return Rule{}, errors.New("regex is required")
	}
	compiled, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Pattern: expr, Regexp: compiled, Transform: transform}, nil
}

// MustRegex is Regex for patterns known at compile time.
func MustRegex(expr string, transform Transform) Rule {
	rule, err := Regex(expr, transform)
	if err != nil {
		panic(err)
	}
	return rule
}

// Match reports whether the rule matches the path and returns the captures.
func (r Rule) Match(changed string) ([]string, bool) {
	normalized := filepath.ToSlash(changed)
	if r.Regexp != nil {
		captures := r.Regexp.FindStringSubmatch(normalized)
		if captures == nil {
			return nil, false
		}
		return captures, true
	}
	if r.Pattern == "" {
		return nil, false
	}
	if r.Pattern == normalized || globMatch(r.Pattern, normalized) {
		return []string{normalized}, true
	}
	if !strings.Contains(r.Pattern, "/") && globMatch(r.Pattern, path.Base(normalized)) {
		return []string{normalized}, true
	}
	return nil, false
}

// Apply produces the value collected for a matched path.
func (r Rule) Apply(changed string, captures []string) any {
	if r.Transform == nil {
		return changed
	}
	return r.Transform(changed, captures)
}

func globMatch(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}
