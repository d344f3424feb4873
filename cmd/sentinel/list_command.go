package main

import (
	"fmt"
	"io"
	"strings"

	"sentinel/internal/config"
	"sentinel/internal/plugins"
)

// runList prints the available plugin types, marking the ones the
// Sentinelfile uses.
func runList(args []string, deps commandDeps) int {
	cfg, code, done := loadCommandConfig(args, deps)
	if done {
		return code
	}
	used := map[string]bool{}
	if path, err := resolveConfigPath(cfg.ConfigPath); err == nil {
		file, err := config.Load(path)
		if err != nil {
			fmt.Fprintln(deps.Stderr, err)
			return 1
		}
		for _, declared := range file.Plugins {
			used[strings.ToLower(strings.TrimSpace(declared.Type))] = true
		}
	}
	writePluginList(deps.Stdout, plugins.Types(), used)
	return 0
}

func writePluginList(out io.Writer, types []string, used map[string]bool) {
	fmt.Fprintln(out, "Available plugins:")
	for _, name := range types {
		marker := " "
		if used[name] {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", marker, name)
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "* plugin used in the Sentinelfile")
}
