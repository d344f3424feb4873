// Package hook is the pub/sub registry for plugin lifecycle events.
//
// Listeners subscribe to (plugin type, event) pairs and are called in
// registration order. Registrations live until Reset, which the engine calls
// between configuration reloads.
package hook

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"sentinel/internal/logging"
)

// Listener receives lifecycle events.
type Listener interface {
	Call(ctx context.Context, pluginType, event string, args ...any)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, pluginType, event string, args ...any)

func (f ListenerFunc) Call(ctx context.Context, pluginType, event string, args ...any) {
	f(ctx, pluginType, event, args...)
}

type registration struct {
	listener   Listener
	pluginType string
	events     map[string]struct{}
}

// Registry stores listener registrations.
type Registry struct {
	mu            sync.Mutex
	registrations []registration
	logger        *logging.Logger
}

func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{logger: logger.WithCategory("hook")}
}

// AddCallback subscribes listener to one or more events of a plugin type.
// Registrations are cumulative.
func (r *Registry) AddCallback(listener Listener, pluginType string, events ...string) {
	if r == nil || listener == nil {
		return
	}
	set := make(map[string]struct{}, len(events))
	for _, event := range events {
		event = strings.TrimSpace(event)
		if event != "" {
			set[event] = struct{}{}
		}
	}
	if len(set) == 0 {
		return
	}
	r.mu.Lock()
	r.registrations = append(r.registrations, registration{
		listener:   listener,
		pluginType: pluginType,
		events:     set,
	})
	r.mu.Unlock()
}

// HasCallback reports whether listener is subscribed to event of pluginType.
func (r *Registry) HasCallback(listener Listener, pluginType, event string) bool {
	if r == nil || listener == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.registrations {
		if reg.pluginType != pluginType || !sameListener(reg.listener, listener) {
			continue
		}
		if _, ok := reg.events[event]; ok {
			return true
		}
	}
	return false
}

// Notify calls every listener registered for exactly (pluginType, event).
func (r *Registry) Notify(ctx context.Context, pluginType, event string, args ...any) {
	if r == nil {
		return
	}
	listeners := r.listenersFor(pluginType, event)
	if len(listeners) == 0 {
		return
	}
	r.logger.Debug("hook notify", map[string]string{
		"plugin.type": pluginType,
		"hook.event":  event,
	})
	for _, listener := range listeners {
		listener.Call(ctx, pluginType, event, args...)
	}
}

// Reset drops every registration.
func (r *Registry) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.registrations = nil
	r.mu.Unlock()
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registrations)
}

func (r *Registry) listenersFor(pluginType, event string) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	listeners := make([]Listener, 0, len(r.registrations))
	for _, reg := range r.registrations {
		if reg.pluginType != pluginType {
			continue
		}
		if _, ok := reg.events[event]; ok {
			listeners = append(listeners, reg.listener)
		}
	}
	return listeners
}

// sameListener compares listeners without panicking on func values, which
// are not comparable with ==.
func sameListener(a, b Listener) bool {
	left := reflect.ValueOf(a)
	right := reflect.ValueOf(b)
	if left.Type() != right.Type() {
		return false
	}
	if left.Kind() == reflect.Func {
		return left.Pointer() == right.Pointer()
	}
	if !left.Type().Comparable() {
		return false
	}
	return a == b
}
