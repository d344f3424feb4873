// Package cli holds flag helpers shared by the sentinel commands.
package cli

import (
	"flag"
	"strings"
)

const (
	defaultHelpDesc    = "Show help"
	defaultVersionDesc = "Print version and exit"
)

type HelpVersionFlags struct {
	Help    bool
	Version bool
}

func AddHelpVersionFlags(fs *flag.FlagSet, helpDesc, versionDesc string) *HelpVersionFlags {
	if fs == nil {
		return &HelpVersionFlags{}
	}
	if helpDesc == "" {
		helpDesc = defaultHelpDesc
	}
	if versionDesc == "" {
		versionDesc = defaultVersionDesc
	}
	flags := &HelpVersionFlags{}
	fs.BoolVar(&flags.Help, "help", false, helpDesc)
	fs.BoolVar(&flags.Help, "h", false, helpDesc)
	fs.BoolVar(&flags.Version, "version", false, versionDesc)
	fs.BoolVar(&flags.Version, "v", false, versionDesc)
	return flags
}

// ListValue is a repeatable flag; each use may also carry a comma separated
// list. Empty items are dropped.
type ListValue []string

func (l *ListValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *ListValue) Set(value string) error {
	*l = append(*l, SplitList(value)...)
	return nil
}

// AddListFlag registers a repeatable list flag under every given name.
func AddListFlag(fs *flag.FlagSet, target *ListValue, usage string, names ...string) {
	if fs == nil || target == nil {
		return
	}
	for _, name := range names {
		fs.Var(target, name, usage)
	}
}

// SplitList splits a comma separated value, trimming items and dropping
// empty ones.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
