package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"sentinel/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce    = 100 * time.Millisecond
	maxRestartAttempts = 3
	restartBaseDelay   = 200 * time.Millisecond
)

// DefaultIgnoreDirs are skipped unless Options.IgnoreDirs is set.
var DefaultIgnoreDirs = []string{".git", ".hg", ".svn", ".bzr", ".bundle", "node_modules"}

// DefaultIgnore matches editor and OS scratch files.
var DefaultIgnore = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)\.#`),
	regexp.MustCompile(`\.sw[px]$`),
	regexp.MustCompile(`~$`),
	regexp.MustCompile(`(^|/)\.DS_Store$`),
	regexp.MustCompile(`(^|/)4913$`),
}

var ErrNoDirectories = errors.New("no directories to watch")

// New starts watching dirs recursively with default options.
func New(handler func(Batch), dirs ...string) (*Watcher, error) {
	return NewWithOptions(Options{Dirs: dirs, Handler: handler})
}

// NewWithOptions creates a Watcher and starts watching immediately.
func NewWithOptions(options Options) (*Watcher, error) {
	instance, err := newWatcher(options)
	if err != nil {
		return nil, err
	}

	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	instance.watcher = source

	for _, dir := range instance.dirs {
		if _, err := instance.addRecursiveWatches(dir); err != nil {
			_ = source.Close()
			return nil, err
		}
	}

	instance.startForwarder(source)
	go instance.run()
	return instance, nil
}

// newWatcher builds the watcher state without an fsnotify source.
func newWatcher(options Options) (*Watcher, error) {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	root := options.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(options.Dirs))
	for _, dir := range options.Dirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		dirs = append(dirs, filepath.Clean(dir))
	}
	if len(options.Dirs) == 0 {
		dirs = append(dirs, root)
	}
	if len(dirs) == 0 {
		return nil, ErrNoDirectories
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	ignoreDirNames := options.IgnoreDirs
	if ignoreDirNames == nil {
		ignoreDirNames = DefaultIgnoreDirs
	}
	ignoreDirs := make(map[string]struct{}, len(ignoreDirNames))
	for _, name := range ignoreDirNames {
		ignoreDirs[name] = struct{}{}
	}
	ignore := options.Ignore
	if ignore == nil {
		ignore = DefaultIgnore
	}

	return &Watcher{
		root:         root,
		dirs:         dirs,
		watched:      make(map[string]struct{}),
		ignore:       ignore,
		ignoreDirs:   ignoreDirs,
		pending:      newPendingBatch(),
		debouncer:    newDebouncer(debounce),
		handler:      options.Handler,
		events:       make(chan fsnotify.Event, 64),
		errors:       make(chan error, 4),
		done:         make(chan struct{}),
		logger:       logger.WithCategory("watcher"),
		errorHandler: options.ErrorHandler,
	}, nil
}

// Close shuts down the watcher. Pending changes are discarded.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.debouncer.stop()
	source := watcher.watcher
	watcher.mutex.Unlock()

	watcher.restartMutex.Lock()
	if watcher.restartTimer != nil {
		watcher.restartTimer.Stop()
		watcher.restartTimer = nil
	}
	watcher.restartMutex.Unlock()

	close(watcher.done)
	if source == nil {
		return nil
	}
	return source.Close()
}

// Root returns the absolute directory paths are reported relative to.
func (watcher *Watcher) Root() string {
	return watcher.root
}

func (watcher *Watcher) run() {
	for {
		select {
		case event := <-watcher.events:
			watcher.handleEvent(event)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	if source == nil {
		return
	}

	go func() {
		for {
			select {
			case event, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.events <- event:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, fields)
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Debug(message, map[string]string{
		"path":           path,
		"active_watches": strconv.Itoa(activeCount),
	})
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.restartMutex.Lock()
	restartAttempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()
	return Metrics{
		ActiveWatches:   watcher.activeWatches(),
		EventsReceived:  atomic.LoadUint64(&watcher.eventsReceived),
		EventsCoalesced: atomic.LoadUint64(&watcher.eventsCoalesced),
		Batches:         atomic.LoadUint64(&watcher.batches),
		Errors:          atomic.LoadUint64(&watcher.errorCount),
		RestartAttempts: restartAttempts,
	}
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
