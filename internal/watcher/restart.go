package watcher

import (
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// handleError counts an fsnotify error (usually a queue overflow) and
// schedules a rebuild of the event source.
func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	atomic.AddUint64(&watcher.errorCount, 1)
	watcher.logWarn("watcher error", map[string]string{
		"error": err.Error(),
	})
	watcher.scheduleRestart(err)
}

func restartDelay(attempt int) time.Duration {
	return restartBaseDelay * time.Duration(1<<attempt)
}

// scheduleRestart arms one pending rebuild at a time. After
// maxRestartAttempts consecutive failures the error goes to ErrorHandler
// and the watcher keeps whatever source it has.
func (watcher *Watcher) scheduleRestart(cause error) {
	if watcher == nil || watcher.isClosed() {
		return
	}
	watcher.restartMutex.Lock()
	defer watcher.restartMutex.Unlock()
	switch {
	case watcher.restartTimer != nil:
		return
	case watcher.restartAttempts >= maxRestartAttempts:
		go watcher.notifyError(cause)
		return
	}
	delay := restartDelay(watcher.restartAttempts)
	watcher.restartAttempts++
	watcher.restartTimer = time.AfterFunc(delay, func() {
		err := watcher.rebuild()

		watcher.restartMutex.Lock()
		watcher.restartTimer = nil
		if err == nil {
			watcher.restartAttempts = 0
		}
		watcher.restartMutex.Unlock()

		if err != nil {
			watcher.logWarn("watcher rebuild failed", map[string]string{
				"error": err.Error(),
			})
			watcher.scheduleRestart(err)
		}
	})
}

func (watcher *Watcher) isClosed() bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.closed
}

func (watcher *Watcher) notifyError(err error) {
	if watcher == nil || watcher.errorHandler == nil || err == nil {
		return
	}
	watcher.errorHandler(err)
}

// rebuild swaps in a fresh fsnotify source and walks the watch roots again,
// so directories created while events were lost get watched too. Changes
// missed during the outage are not reported.
func (watcher *Watcher) rebuild() error {
	if watcher.isClosed() {
		return nil
	}
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		_ = source.Close()
		return nil
	}
	previous := watcher.watcher
	watcher.watcher = source
	watcher.watched = make(map[string]struct{})
	watcher.mutex.Unlock()

	watcher.startForwarder(source)
	if previous != nil {
		_ = previous.Close()
	}
	for _, dir := range watcher.dirs {
		if _, err := watcher.addRecursiveWatches(dir); err != nil {
			return err
		}
	}
	watcher.logger.Info("watcher rebuilt", map[string]string{
		"active_watches": itoa(watcher.activeWatches()),
	})
	return nil
}
