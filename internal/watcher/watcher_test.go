package watcher

import (
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, options Options) (*Watcher, <-chan Batch) {
	t.Helper()
	batches := make(chan Batch, 8)
	if options.Root == "" {
		options.Root = t.TempDir()
	}
	if options.Debounce == 0 {
		options.Debounce = 20 * time.Millisecond
	}
	options.Handler = func(batch Batch) { batches <- batch }
	watcher, err := newWatcher(options)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })
	return watcher, batches
}

func waitForBatch(t *testing.T, batches <-chan Batch) Batch {
	t.Helper()
	select {
	case batch := <-batches:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

func TestHandleEventCoalescesIntoOneBatch(t *testing.T) {
	watcher, batches := newTestWatcher(t, Options{})
	root := watcher.Root()

	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "lib", "a.rb"), Op: fsnotify.Write})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "new.rb"), Op: fsnotify.Create})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "new.rb"), Op: fsnotify.Write})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "gone.rb"), Op: fsnotify.Remove})

	batch := waitForBatch(t, batches)
	want := Batch{Modified: []string{"lib/a.rb"}, Added: []string{"new.rb"}, Removed: []string{"gone.rb"}}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("expected %+v, got %+v", want, batch)
	}
	if metrics := watcher.Metrics(); metrics.EventsCoalesced != 1 || metrics.Batches != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestHandleEventSkipsIgnoredPaths(t *testing.T) {
	watcher, batches := newTestWatcher(t, Options{
		Ignore:     []*regexp.Regexp{regexp.MustCompile(`\.log$`)},
		IgnoreDirs: []string{"tmp"},
	})
	root := watcher.Root()

	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "debug.log"), Op: fsnotify.Write})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "tmp", "cache", "x.rb"), Op: fsnotify.Write})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(filepath.Dir(root), "outside.rb"), Op: fsnotify.Write})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "tmp.rb"), Op: fsnotify.Write})

	batch := waitForBatch(t, batches)
	if !reflect.DeepEqual(batch.Modified, []string{"tmp.rb"}) {
		t.Fatalf("expected only tmp.rb, got %+v", batch)
	}
}

func TestHandleEventCreatedThenRemovedIsDropped(t *testing.T) {
	watcher, batches := newTestWatcher(t, Options{})
	root := watcher.Root()

	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "flash.rb"), Op: fsnotify.Create})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "flash.rb"), Op: fsnotify.Remove})
	watcher.handleEvent(fsnotify.Event{Name: filepath.Join(root, "kept.rb"), Op: fsnotify.Write})

	batch := waitForBatch(t, batches)
	if len(batch.Added) != 0 || len(batch.Removed) != 0 || !reflect.DeepEqual(batch.Modified, []string{"kept.rb"}) {
		t.Fatalf("unexpected batch %+v", batch)
	}
}

func TestCollectRecursiveDirsSkipsIgnored(t *testing.T) {
	watcher, _ := newTestWatcher(t, Options{})
	root := watcher.Root()
	for _, dir := range []string{"a/b", ".git/objects", "node_modules/pkg"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	dirs, err := watcher.collectRecursiveDirs(root)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}
	if !reflect.DeepEqual(dirs, want) {
		t.Fatalf("expected %v, got %v", want, dirs)
	}
}

func TestWatcherReportsFileChanges(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.txt")
	if err := os.WriteFile(existing, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	batches := make(chan Batch, 8)
	watcher, err := NewWithOptions(Options{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Handler:  func(batch Batch) { batches <- batch },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(existing, []byte("v2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "created.txt"), []byte("new"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	seen := map[string]string{}
	deadline := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			for _, path := range batch.Modified {
				seen[path] = "modified"
			}
			for _, path := range batch.Added {
				seen[path] = "added"
			}
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	if seen["existing.txt"] != "modified" || seen["created.txt"] != "added" {
		t.Fatalf("unexpected classification %v", seen)
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	batches := make(chan Batch, 8)
	watcher, err := NewWithOptions(Options{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Handler:  func(batch Batch) { batches <- batch },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	nested := filepath.Join(root, "pkg", "sub")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "file.go"), []byte("package sub"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, path := range batch.Paths() {
				if path == "pkg/sub/file.go" {
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for nested file")
		}
	}
}

func TestNewWithOptionsFailsForMissingDir(t *testing.T) {
	root := t.TempDir()
	if _, err := NewWithOptions(Options{Root: root, Dirs: []string{"missing"}}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	watcher, err := NewWithOptions(Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestRestartDelayBacksOff(t *testing.T) {
	if restartDelay(0) != restartBaseDelay || restartDelay(2) != 4*restartBaseDelay {
		t.Fatalf("unexpected restart delays")
	}
}

func TestRebuildRewalksRootsAndKeepsDelivering(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	batches := make(chan Batch, 8)
	watcher, err := NewWithOptions(Options{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Handler:  func(batch Batch) { batches <- batch },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if got := watcher.Metrics().ActiveWatches; got != 3 {
		t.Fatalf("expected 3 watches after rebuild, got %d", got)
	}

	if err := os.WriteFile(filepath.Join(root, "a", "b", "x.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, path := range batch.Paths() {
				if path == "a/b/x.go" {
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for event from rebuilt source")
		}
	}
}
