package watcher

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debouncer runs flush once no event arrived for the configured duration.
type debouncer struct {
	duration time.Duration
	timer    *time.Timer
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{duration: duration}
}

// schedule starts or extends the window. It reports whether a window was
// already open.
func (debouncer *debouncer) schedule(flush func()) bool {
	if debouncer == nil {
		return false
	}
	if debouncer.timer == nil {
		debouncer.timer = time.AfterFunc(debouncer.duration, flush)
		return false
	}
	debouncer.timer.Reset(debouncer.duration)
	return true
}

func (debouncer *debouncer) clear() {
	if debouncer == nil {
		return
	}
	debouncer.timer = nil
}

func (debouncer *debouncer) stop() {
	if debouncer == nil || debouncer.timer == nil {
		return
	}
	debouncer.timer.Stop()
	debouncer.timer = nil
}

func classify(op fsnotify.Op) changeKind {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return kindRemoved
	case op.Has(fsnotify.Create):
		return kindAdded
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return kindModified
	default:
		return 0
	}
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	atomic.AddUint64(&watcher.eventsReceived, 1)
	kind := classify(event.Op)
	if kind == 0 {
		return
	}

	if kind == kindAdded {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			watcher.watchNewDir(event.Name)
			return
		}
	}
	if kind == kindRemoved && watcher.forgetDir(event.Name) {
		return
	}
	watcher.record(event.Name, kind)
}

func (watcher *Watcher) record(absolute string, kind changeKind) {
	path, ok := watcher.relative(absolute)
	if !ok || watcher.ignored(path) {
		return
	}

	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.closed {
		return
	}
	if watcher.pending.record(path, kind) {
		atomic.AddUint64(&watcher.eventsCoalesced, 1)
	}
	watcher.debouncer.schedule(watcher.flush)
}

func (watcher *Watcher) flush() {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	watcher.debouncer.clear()
	batch := watcher.pending.drain()
	handler := watcher.handler
	watcher.mutex.Unlock()

	if batch.Empty() || handler == nil {
		return
	}
	watcher.deliverMu.Lock()
	defer watcher.deliverMu.Unlock()
	atomic.AddUint64(&watcher.batches, 1)
	watcher.logger.Debug("change batch", map[string]string{
		"modified": itoa(len(batch.Modified)),
		"added":    itoa(len(batch.Added)),
		"removed":  itoa(len(batch.Removed)),
	})
	handler(batch)
}
