package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"sentinel/internal/config"
	"sentinel/internal/engine"
	"sentinel/internal/hook"
	"sentinel/internal/logging"
	"sentinel/internal/notify"
	"sentinel/internal/plugin"
	"sentinel/internal/plugins"
	"sentinel/internal/process"
	"sentinel/internal/scope"
	"sentinel/internal/ui"
	"sentinel/internal/watcher"
)

// session is one loaded Sentinelfile with the services built from it.
type session struct {
	cfg       Config
	path      string
	file      *config.File
	options   config.Options
	logger    *logging.Logger
	notifier  *notify.Notifier
	ui        *ui.UI
	engine    *engine.Engine
	processes *process.Registry
}

func newSession(cfg Config, logger *logging.Logger, stdout io.Writer) (*session, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	path, err := resolveConfigPath(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFileOptions(&cfg, file.Options)

	sinks, err := buildSinks(file.Notifications, stdout)
	if err != nil {
		return nil, err
	}
	notifier := notify.New(notify.Options{
		Sinks:   append([]notify.Sink{notify.SpanSink{}}, sinks...),
		Enabled: cfg.Notify,
		Logger:  logger,
	})
	reporter := ui.New(ui.Options{
		Logger:           logger,
		Notifier:         notifier,
		Output:           stdout,
		Clear:            cfg.Clear,
		ShowDeprecations: file.Options.ShowDeprecations,
	})

	current := &session{
		cfg:       cfg,
		path:      path,
		file:      file,
		options:   file.Options,
		logger:    logger,
		notifier:  notifier,
		ui:        reporter,
		processes: process.NewRegistry(),
	}
	current.engine = engine.New(engine.Options{
		UI:     reporter,
		Logger: logger,
		Loader: current.load,
	})
	return current, nil
}

// load installs the Sentinelfile into fresh registries. The first call uses
// the file read at startup; later calls read it again.
func (s *session) load(registry *plugin.Registry, hooks *hook.Registry) error {
	file := s.file
	s.file = nil
	if file == nil {
		reloaded, err := config.Load(s.path)
		if err != nil {
			return err
		}
		file = reloaded
	}
	return plugins.Install(file, registry, hooks, plugins.Deps{
		Logger:        s.logger,
		Output:        s.ui.Output(),
		Notify:        s.ui.Notify,
		RequestReload: s.engine.RequestReload,
		ConfigPath:    s.path,
		Processes:     s.processes,
	})
}

// applyScope sets the default scope from --group and --plugin. Unknown names
// are reported and skipped.
func (s *session) applyScope() {
	if len(s.cfg.Groups) == 0 && len(s.cfg.Plugins) == 0 {
		return
	}
	resolved, unknown := scope.ResolveExplicit(s.engine.Registry(), s.cfg.Groups, s.cfg.Plugins)
	if len(unknown) > 0 {
		s.ui.Error("Unknown scope: " + strings.Join(unknown, ", "))
	}
	if !resolved.Empty() {
		s.engine.SetScope(resolved)
	}
}

func (s *session) watcherOptions(handler func(watcher.Batch)) (watcher.Options, error) {
	ignore := append([]*regexp.Regexp(nil), watcher.DefaultIgnore...)
	for _, expr := range s.options.Ignore {
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return watcher.Options{}, fmt.Errorf("ignore %q: %w", expr, err)
		}
		ignore = append(ignore, compiled)
	}
	var ignoreDirs []string
	if len(s.options.IgnoreDirs) > 0 {
		ignoreDirs = append(append(ignoreDirs, watcher.DefaultIgnoreDirs...), s.options.IgnoreDirs...)
	}
	return watcher.Options{
		Logger:     s.logger,
		Dirs:       s.cfg.WatchDirs,
		Debounce:   s.cfg.Debounce,
		Ignore:     ignore,
		IgnoreDirs: ignoreDirs,
		Handler:    handler,
		ErrorHandler: func(err error) {
			s.ui.Error("File watching stopped: " + err.Error())
		},
	}, nil
}

func resolveConfigPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path, err := config.DefaultPath(wd)
	if errors.Is(err, config.ErrNotFound) {
		return "", fmt.Errorf("%w in %s or ~/.sentinel (expected one of %s)", err, wd, strings.Join(config.FileNames, ", "))
	}
	return path, err
}

func buildSinks(declared []config.Notification, stdout io.Writer) ([]notify.Sink, error) {
	sinks := make([]notify.Sink, 0, len(declared))
	for index, notification := range declared {
		switch strings.ToLower(strings.TrimSpace(notification.Type)) {
		case "file":
			sinks = append(sinks, notify.FileSink{Path: notification.Path})
		case "command":
			sinks = append(sinks, notify.CommandSink{Command: notification.Command, Args: notification.Args})
		case "title":
			sinks = append(sinks, notify.TerminalTitleSink{Writer: stdout})
		default:
			return nil, fmt.Errorf("notification[%d]: unknown type %q", index, notification.Type)
		}
	}
	return sinks, nil
}
