// Package ui is the user-facing reporting surface: leveled messages through
// the logger, screen clearing, and notifications.
package ui

import (
	"context"
	"io"
	"os"
	"sync"

	"sentinel/internal/logging"
	"sentinel/internal/notify"
)

const clearSequence = "\x1b[H\x1b[2J\x1b[3J"

type Options struct {
	Logger   *logging.Logger
	Notifier *notify.Notifier
	// Output receives the clear sequence; defaults to os.Stdout.
	Output io.Writer
	// Clear enables clearing the screen before each change batch.
	Clear            bool
	ShowDeprecations bool
}

type UI struct {
	logger           *logging.Logger
	notifier         *notify.Notifier
	output           io.Writer
	showDeprecations bool

	mu           sync.Mutex
	clearEnabled bool
	clearable    bool
}

func New(options Options) *UI {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	output := options.Output
	if output == nil {
		output = os.Stdout
	}
	notifier := options.Notifier
	if notifier == nil {
		notifier = notify.New(notify.Options{Logger: logger})
	}
	return &UI{
		logger:           logger.WithCategory("ui"),
		notifier:         notifier,
		output:           output,
		showDeprecations: options.ShowDeprecations,
		clearEnabled:     options.Clear,
	}
}

func (u *UI) Error(message string) { u.logger.Error(message, nil) }
func (u *UI) Warn(message string)  { u.logger.Warn(message, nil) }
func (u *UI) Info(message string)  { u.logger.Info(message, nil) }
func (u *UI) Debug(message string) { u.logger.Debug(message, nil) }

// Deprecation reports a deprecation warning when deprecations are shown.
func (u *UI) Deprecation(message string) {
	if !u.showDeprecations {
		return
	}
	u.logger.Warn(message, map[string]string{"deprecation": "true"})
}

// MarkClearable arms the next Clear call.
func (u *UI) MarkClearable() {
	u.mu.Lock()
	u.clearable = true
	u.mu.Unlock()
}

// Clear clears the screen once per MarkClearable while clearing is enabled.
func (u *UI) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.clearEnabled || !u.clearable {
		return
	}
	u.clearable = false
	_, _ = io.WriteString(u.output, clearSequence)
}

func (u *UI) SetClear(enabled bool) {
	u.mu.Lock()
	u.clearEnabled = enabled
	u.mu.Unlock()
}

func (u *UI) ClearEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.clearEnabled
}

// Notify sends a notification without waiting on the outcome; sink failures
// are logged by the notifier.
func (u *UI) Notify(message string, details notify.Details) {
	_ = u.notifier.Notify(context.Background(), message, details)
}

func (u *UI) Notifier() *notify.Notifier { return u.notifier }

// Output is the writer plugins print command output to.
func (u *UI) Output() io.Writer { return u.output }
