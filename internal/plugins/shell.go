package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"sentinel/internal/logging"
	"sentinel/internal/match"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/process"
)

const ShellType = "shell"

// Shell option keys.
const (
	OptionCommand = "command"
	OptionRunAll  = "run_all"
	OptionStart   = "start"
	OptionShell   = "shell"
	OptionDir     = "dir"
	OptionTTY     = "tty"
	OptionNotify  = "notify"
)

const pathsPlaceholder = "{paths}"

// Shell runs shell commands. "command" handles changes, "run_all" and
// "start" are optional. A non-zero exit is a task failure; a command that
// cannot be started is a fault.
type Shell struct {
	*plugin.Base
	shell     string
	dir       string
	tty       bool
	notify    bool
	output    io.Writer
	logger    *logging.Logger
	send      func(message string, details notify.Details)
	processes *process.Registry
}

func NewShell(spec plugin.Spec, deps Deps) (plugin.Plugin, error) {
	base := plugin.NewBase(spec)
	shell := &Shell{
		Base:      base,
		shell:     plugin.StringOption(base, OptionShell, "/bin/sh"),
		dir:       plugin.StringOption(base, OptionDir, ""),
		tty:       plugin.BoolOption(base, OptionTTY, false),
		notify:    plugin.BoolOption(base, OptionNotify, false),
		output:    deps.Output,
		logger:    deps.Logger.WithCategory("shell").With(map[string]string{"plugin": base.Name()}),
		send:      deps.Notify,
		processes: deps.Processes,
	}
	if shell.output == nil {
		shell.output = os.Stdout
	}

	command := strings.TrimSpace(plugin.StringOption(base, OptionCommand, ""))
	runAll := strings.TrimSpace(plugin.StringOption(base, OptionRunAll, ""))
	start := strings.TrimSpace(plugin.StringOption(base, OptionStart, ""))
	if command == "" && runAll == "" && start == "" {
		return nil, fmt.Errorf("shell plugin %s: set at least one of command, run_all or start", base.Name())
	}
	if command != "" {
		base.Handle(plugin.TaskRunOnChanges, func(ctx context.Context, args ...any) (any, error) {
			return shell.run(ctx, command, match.Paths(args))
		})
	}
	if runAll != "" {
		base.Handle(plugin.TaskRunAll, func(ctx context.Context, _ ...any) (any, error) {
			return shell.run(ctx, runAll, nil)
		})
	}
	if start != "" {
		base.Handle(plugin.TaskStart, func(ctx context.Context, _ ...any) (any, error) {
			return shell.run(ctx, start, nil)
		})
	}
	return shell, nil
}

// ExpandCommand substitutes {paths} with the shell-quoted paths.
func ExpandCommand(command string, paths []string) string {
	if !strings.Contains(command, pathsPlaceholder) {
		return command
	}
	quoted := make([]string, len(paths))
	for index, path := range paths {
		quoted[index] = shellQuote(path)
	}
	return strings.ReplaceAll(command, pathsPlaceholder, strings.Join(quoted, " "))
}

func (s *Shell) run(ctx context.Context, command string, paths []string) (any, error) {
	expanded := ExpandCommand(command, paths)
	cmd := exec.CommandContext(ctx, s.shell, "-c", expanded)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), "SENTINEL_PATHS="+strings.Join(paths, "\n"))
	s.logger.Debug("running command", map[string]string{"command": expanded})

	process.Prepare(cmd, s.tty)
	started := func() func() { return s.processes.Track(cmd, s.Name()) }

	var err error
	if s.tty {
		err = runWithPty(cmd, s.output, started)
	} else {
		cmd.Stdout = s.output
		cmd.Stderr = s.output
		if err = cmd.Start(); err == nil {
			untrack := started()
			err = cmd.Wait()
			untrack()
		}
	}

	var exitErr *exec.ExitError
	switch {
	case err != nil && ctx.Err() != nil:
		message := fmt.Sprintf("%s: command interrupted", s.Name())
		return nil, plugin.Failed(message)
	case err == nil:
		s.report(fmt.Sprintf("%s succeeded", s.Name()), "success")
		return true, nil
	case errors.As(err, &exitErr):
		message := fmt.Sprintf("%s: command exited with status %d", s.Name(), exitErr.ExitCode())
		s.report(message, "failed")
		return nil, plugin.Failed(message)
	default:
		return nil, fmt.Errorf("start %q: %w", expanded, err)
	}
}

func (s *Shell) report(message, image string) {
	if !s.notify {
		return
	}
	s.send(message, notify.Details{Image: image, Fields: map[string]string{"plugin": s.Name()}})
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	safe := true
	for _, r := range value {
		if !(r == '/' || r == '.' || r == '_' || r == '-' || r == '+' || r == ':' || r == ',' || r == '@' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			safe = false
			break
		}
	}
	if safe {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
