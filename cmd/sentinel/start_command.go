package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"sentinel/internal/interactor"
	"sentinel/internal/logging"
	sentinelotel "sentinel/internal/otel"
	"sentinel/internal/version"
	"sentinel/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func runStart(args []string, deps commandDeps) int {
	cfg, code, done := loadCommandConfig(args, deps)
	if done {
		return code
	}
	logger := newLogger(cfg, deps)
	if cfg.Verbose {
		logStartupFlags(logger, cfg)
	}
	logVersionInfo(logger)

	shutdownTelemetry := setupTelemetry(logger)

	current, err := newSession(cfg, logger, deps.Stdout)
	if err != nil {
		logger.Error("load config failed", map[string]string{
			"error": err.Error(),
		})
		_ = shutdownTelemetry(context.Background())
		return 1
	}
	if err := current.engine.Load(); err != nil {
		current.ui.Error("Failed to load " + current.path + ": " + err.Error())
		_ = shutdownTelemetry(context.Background())
		return 1
	}
	logger.Info("sentinel started", map[string]string{
		"config":  current.path,
		"plugins": strconv.Itoa(current.engine.Registry().Len()),
	})
	current.applyScope()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	current.engine.Start(ctx)

	coordinator := newShutdownCoordinator(logger)
	options, err := current.watcherOptions(func(batch watcher.Batch) {
		current.engine.Dispatch(ctx, batch)
	})
	if err == nil {
		var fsWatcher *watcher.Watcher
		fsWatcher, err = watcher.NewWithOptions(options)
		if err == nil {
			coordinator.Add("watcher", func(context.Context) error {
				return fsWatcher.Close()
			})
		}
	}
	if err != nil {
		logger.Error("file watcher unavailable", map[string]string{
			"error": err.Error(),
		})
		current.engine.Stop(ctx)
		_ = shutdownTelemetry(context.Background())
		return 1
	}
	coordinator.Add("plugins", func(ctx context.Context) error {
		report := current.engine.Stop(ctx)
		if len(report.Removed) > 0 {
			return fmt.Errorf("plugins faulted while stopping: %v", report.Removed)
		}
		return nil
	})
	coordinator.Add("processes", current.processes.StopAll)
	coordinator.Add("telemetry", shutdownTelemetry)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, watchedSignals()...)
	defer signal.Stop(signals)
	stopSignals := watchSignals(logger, signalActions{
		Shutdown:   cancel,
		Pause:      current.engine.Pause,
		Resume:     current.engine.Resume,
		Reevaluate: current.engine.RequestReload,
	}, signals)
	defer stopSignals()

	if !cfg.NoInteractions {
		commands := interactor.New(interactor.Options{
			Engine:   current.engine,
			UI:       current.ui,
			Notifier: current.notifier,
			Output:   deps.Stdout,
			Logger:   logger,
		})
		go func() {
			exited, err := commands.Run(ctx, deps.Stdin)
			if err != nil {
				logger.Warn("interactor stopped", map[string]string{
					"error": err.Error(),
				})
			}
			if exited {
				cancel()
			}
		}()
	}

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-current.engine.Reloads():
			_ = current.engine.Reload(ctx)
			current.applyScope()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := coordinator.Run(shutdownCtx); err != nil {
		return 1
	}
	logger.Info("sentinel stopped", nil)
	return 0
}

// loadCommandConfig parses flags and handles --help and --version. done is
// true when the command should return code without doing anything else.
func loadCommandConfig(args []string, deps commandDeps) (cfg Config, code int, done bool) {
	cfg, err := loadConfig(args, deps.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, 0, true
		}
		fmt.Fprintln(deps.Stderr, err)
		return Config{}, 2, true
	}
	if cfg.ShowVersion {
		printVersion(deps.Stdout)
		return Config{}, 0, true
	}
	return cfg, 0, false
}

func newLogger(cfg Config, deps commandDeps) *logging.Logger {
	logBuffer := logging.NewLogBuffer(logging.DefaultBufferSize)
	return logging.NewLoggerWithOutput(logBuffer, cfg.LogLevel, deps.Stderr)
}

func setupTelemetry(logger *logging.Logger) func(context.Context) error {
	options := sentinelotel.SDKOptionsFromEnv()
	options.ServiceVersion = version.Label()
	shutdown, err := sentinelotel.SetupSDK(context.Background(), options)
	if err != nil {
		logger.Warn("telemetry unavailable", map[string]string{
			"error": err.Error(),
		})
		return func(context.Context) error { return nil }
	}
	if options.Enabled {
		logger.Debug("telemetry enabled", map[string]string{
			"endpoint": options.HTTPEndpoint,
			"service":  options.ServiceName,
		})
	}
	return shutdown
}
