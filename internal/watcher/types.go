package watcher

import (
	"regexp"
	"sync"
	"time"

	"sentinel/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Batch is one debounced set of changes.
type Batch struct {
	Modified []string
	Added    []string
	Removed  []string
}

func (b Batch) Empty() bool {
	return len(b.Modified) == 0 && len(b.Added) == 0 && len(b.Removed) == 0
}

// Paths returns every path of the batch, modified first.
func (b Batch) Paths() []string {
	paths := make([]string, 0, len(b.Modified)+len(b.Added)+len(b.Removed))
	paths = append(paths, b.Modified...)
	paths = append(paths, b.Added...)
	return append(paths, b.Removed...)
}

// Options controls watcher behavior.
type Options struct {
	Logger *logging.Logger
	// Root is the directory reported paths are relative to; defaults to the
	// working directory.
	Root string
	// Dirs are the directories to watch recursively; defaults to Root.
	Dirs     []string
	Debounce time.Duration
	// Ignore is matched against root-relative slash paths.
	Ignore []*regexp.Regexp
	// IgnoreDirs are directory names skipped at any depth.
	IgnoreDirs []string
	Handler    func(Batch)
	// ErrorHandler is called when the watcher gives up restarting.
	ErrorHandler func(error)
}

// Metrics reports watcher counters.
type Metrics struct {
	ActiveWatches   int
	EventsReceived  uint64
	EventsCoalesced uint64
	Batches         uint64
	Errors          uint64
	RestartAttempts int
}

// Watcher is the fsnotify-backed implementation.
type Watcher struct {
	watcher    *fsnotify.Watcher
	mutex      sync.Mutex
	root       string
	dirs       []string
	watched    map[string]struct{}
	ignore     []*regexp.Regexp
	ignoreDirs map[string]struct{}
	pending    *pendingBatch
	debouncer  *debouncer
	handler    func(Batch)
	deliverMu  sync.Mutex
	events     chan fsnotify.Event
	errors     chan error
	done       chan struct{}
	closed     bool
	logger     *logging.Logger

	errorHandler    func(error)
	restartMutex    sync.Mutex
	restartTimer    *time.Timer
	restartAttempts int

	eventsReceived  uint64
	eventsCoalesced uint64
	batches         uint64
	errorCount      uint64
}
