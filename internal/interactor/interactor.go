// Package interactor reads commands from a terminal and drives the engine.
package interactor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sentinel/internal/logging"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/runner"
	"sentinel/internal/scope"
	"sentinel/internal/watcher"
)

// Engine is the part of the engine the interactor drives.
type Engine interface {
	RunAll(ctx context.Context, s plugin.Scope) runner.Report
	ReloadPlugins(ctx context.Context, s plugin.Scope) runner.Report
	// RequestReload queues a full reload for the main loop, which also
	// re-applies the startup scope.
	RequestReload()
	Dispatch(ctx context.Context, batch watcher.Batch) bool
	TogglePause() bool
	SetScope(s plugin.Scope)
	Registry() *plugin.Registry
}

type UI interface {
	Info(message string)
	Error(message string)
}

type Options struct {
	Engine   Engine
	UI       UI
	Notifier *notify.Notifier
	// Output receives help and show listings.
	Output io.Writer
	Logger *logging.Logger
}

type Interactor struct {
	engine   Engine
	ui       UI
	notifier *notify.Notifier
	output   io.Writer
	logger   *logging.Logger
}

func New(options Options) *Interactor {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	output := options.Output
	if output == nil {
		output = io.Discard
	}
	return &Interactor{
		engine:   options.Engine,
		ui:       options.UI,
		notifier: options.Notifier,
		output:   output,
		logger:   logger.WithCategory("interactor"),
	}
}

// Run executes commands read line by line until input ends, exit is
// entered or ctx is done. exited reports whether the exit command ended it.
func (i *Interactor) Run(ctx context.Context, input io.Reader) (exited bool, err error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case err := <-readErr:
			return false, err
		case line := <-lines:
			command, err := Parse(line)
			if err != nil {
				i.ui.Error(err.Error())
				continue
			}
			if exit := i.Execute(ctx, command); exit {
				return true, nil
			}
		}
	}
}

// Execute runs one command and reports whether the interactor should exit.
func (i *Interactor) Execute(ctx context.Context, command Command) bool {
	i.logger.Debug("command", map[string]string{
		"command": command.Name,
		"args":    strings.Join(command.Args, " "),
	})
	switch command.Name {
	case "all":
		if s, ok := i.resolve(command.Args); ok {
			i.engine.RunAll(ctx, s)
		}
	case "change":
		if len(command.Args) == 0 {
			i.ui.Error("change needs at least one path")
			return false
		}
		i.engine.Dispatch(ctx, watcher.Batch{Modified: command.Args})
	case "scope":
		if s, ok := i.resolve(command.Args); ok {
			i.engine.SetScope(s)
		}
	case "pause":
		i.engine.TogglePause()
	case "reload":
		if s, ok := i.resolve(command.Args); ok {
			i.engine.ReloadPlugins(ctx, s)
		}
	case "reevaluate":
		i.engine.RequestReload()
	case "notification":
		i.toggleNotifications()
	case "show":
		i.show()
	case "help":
		_, _ = io.WriteString(i.output, helpText)
	case "exit":
		return true
	}
	return false
}

// resolve turns scope tokens into a scope. Unknown tokens are reported and
// nothing runs.
func (i *Interactor) resolve(tokens []string) (plugin.Scope, bool) {
	s, unknown := scope.Resolve(i.engine.Registry(), tokens)
	if len(unknown) > 0 {
		i.ui.Error(fmt.Sprintf("Unknown scope: %s", strings.Join(unknown, ", ")))
		return plugin.Scope{}, false
	}
	return s, true
}

func (i *Interactor) toggleNotifications() {
	if i.notifier == nil {
		i.ui.Error("Notifications are not configured")
		return
	}
	if i.notifier.Toggle() {
		i.ui.Info("Notifications turned on")
	} else {
		i.ui.Info("Notifications turned off")
	}
}

func (i *Interactor) show() {
	registry := i.engine.Registry()
	for _, group := range registry.Groups() {
		plugins := registry.PluginsInGroups([]*plugin.Group{group})
		if len(plugins) == 0 {
			continue
		}
		suffix := ""
		if group.HaltOnFail() {
			suffix = " (halt_on_fail)"
		}
		fmt.Fprintf(i.output, "%s%s\n", group.Name, suffix)
		for _, p := range plugins {
			fmt.Fprintf(i.output, "  %s [%s]\n", p.Name(), p.Type())
		}
	}
}
