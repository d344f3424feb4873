package main

import (
	"context"
	"fmt"
	"strings"

	"sentinel/internal/plugin"
	"sentinel/internal/scope"
)

// runTask runs one task once, without starting the watcher:
// sentinel run [options] <task> [group|plugin ...]
func runTask(args []string, deps commandDeps) int {
	cfg, code, done := loadCommandConfig(args, deps)
	if done {
		return code
	}
	if len(cfg.Args) == 0 {
		fmt.Fprintln(deps.Stderr, "usage: sentinel run [options] <task> [group|plugin ...]")
		return 2
	}
	task, ok := plugin.ParseTask(cfg.Args[0])
	if !ok {
		names := make([]string, 0, len(plugin.Tasks))
		for _, known := range plugin.Tasks {
			names = append(names, string(known))
		}
		fmt.Fprintf(deps.Stderr, "unknown task %q (known: %s)\n", cfg.Args[0], strings.Join(names, ", "))
		return 2
	}

	logger := newLogger(cfg, deps)
	shutdownTelemetry := setupTelemetry(logger)
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	current, err := newSession(cfg, logger, deps.Stdout)
	if err != nil {
		fmt.Fprintln(deps.Stderr, err)
		return 1
	}
	if err := current.engine.Load(); err != nil {
		fmt.Fprintln(deps.Stderr, err)
		return 1
	}
	current.applyScope()

	tokens := append([]string(nil), cfg.Args[1:]...)
	resolved, unknown := scope.Resolve(current.engine.Registry(), tokens)
	if len(unknown) > 0 {
		fmt.Fprintf(deps.Stderr, "unknown scope: %s\n", strings.Join(unknown, ", "))
		return 2
	}

	report := current.engine.RunTask(context.Background(), task, resolved)
	logger.Info("task finished", map[string]string{
		"task":    string(task),
		"ran":     strings.Join(report.Ran, ","),
		"failed":  strings.Join(report.Failed, ","),
		"removed": strings.Join(report.Removed, ","),
		"halted":  report.HaltedBy,
	})
	if report.Halted() || len(report.Failed) > 0 || len(report.Removed) > 0 {
		return 1
	}
	return 0
}
