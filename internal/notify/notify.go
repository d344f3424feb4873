// Package notify delivers user notifications to pluggable sinks.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"sentinel/internal/logging"
)

const DefaultTitle = "Sentinel"

var ErrSinkUnavailable = errors.New("notification sink unavailable")

// Type classifies a notification for sinks that render it differently.
type Type string

const (
	TypeSuccess Type = "success"
	TypeFailed  Type = "failed"
	TypePending Type = "pending"
	TypeNotify  Type = "notify"
)

// TypeForImage maps the image names plugins pass to a notification type.
func TypeForImage(image string) Type {
	switch strings.ToLower(strings.TrimSpace(image)) {
	case "failed":
		return TypeFailed
	case "pending":
		return TypePending
	case "success":
		return TypeSuccess
	default:
		return TypeNotify
	}
}

// Details carries the optional parts of a notification.
type Details struct {
	Title    string
	Image    string
	Priority int
	Fields   map[string]string
}

type Options struct {
	Sinks   []Sink
	Enabled bool
	Title   string
	Logger  *logging.Logger
}

// Notifier fans notifications out to every sink while enabled.
type Notifier struct {
	mu      sync.RWMutex
	sinks   []Sink
	enabled bool
	title   string
	logger  *logging.Logger
}

func New(options Options) *Notifier {
	title := strings.TrimSpace(options.Title)
	if title == "" {
		title = DefaultTitle
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	sinks := make([]Sink, 0, len(options.Sinks))
	for _, sink := range options.Sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}
	return &Notifier{
		sinks:   sinks,
		enabled: options.Enabled,
		title:   title,
		logger:  logger.WithCategory("notify"),
	}
}

func (n *Notifier) AddSink(sink Sink) {
	if n == nil || sink == nil {
		return
	}
	n.mu.Lock()
	n.sinks = append(n.sinks, sink)
	n.mu.Unlock()
}

func (n *Notifier) Enable()  { n.setEnabled(true) }
func (n *Notifier) Disable() { n.setEnabled(false) }

// Toggle flips the enabled state and returns the new state.
func (n *Notifier) Toggle() bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = !n.enabled
	return n.enabled
}

func (n *Notifier) Enabled() bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Notify sends message to every sink. Sink errors are logged and joined;
// a disabled notifier sends nothing.
func (n *Notifier) Notify(ctx context.Context, message string, details Details) error {
	if n == nil {
		return nil
	}
	n.mu.RLock()
	enabled := n.enabled
	sinks := make([]Sink, len(n.sinks))
	copy(sinks, n.sinks)
	title := n.title
	n.mu.RUnlock()
	if !enabled || len(sinks) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(details.Title) != "" {
		title = details.Title
	}
	event := Event{
		Type:       TypeForImage(details.Image),
		Title:      title,
		Message:    message,
		Image:      details.Image,
		Priority:   details.Priority,
		Fields:     details.Fields,
		OccurredAt: time.Now().UTC(),
	}
	var errs []error
	for _, sink := range sinks {
		if err := sink.Emit(ctx, event); err != nil {
			n.logger.Warn("notification sink failed", map[string]string{
				"error": err.Error(),
				"type":  string(event.Type),
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) setEnabled(enabled bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
}
