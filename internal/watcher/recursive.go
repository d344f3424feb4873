package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// addRecursiveWatches watches root and every directory below it that is
// not ignored.
func (watcher *Watcher) addRecursiveWatches(root string) ([]string, error) {
	paths, err := watcher.collectRecursiveDirs(root)
	if err != nil {
		return nil, err
	}
	added := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := watcher.addWatch(path); err != nil {
			watcher.removeWatches(added)
			return nil, err
		}
		added = append(added, path)
	}
	return added, nil
}

func (watcher *Watcher) collectRecursiveDirs(root string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && watcher.ignoredDir(entry.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// watchNewDir picks up a directory created after start. Files already in it
// are reported as added since their create events predate the watch.
func (watcher *Watcher) watchNewDir(dir string) {
	if watcher.ignoredDir(filepath.Base(dir)) {
		return
	}
	if _, err := watcher.addRecursiveWatches(dir); err != nil {
		watcher.logWarn("watch add failed", map[string]string{
			"path":  dir,
			"error": err.Error(),
		})
		return
	}
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != dir && watcher.ignoredDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		watcher.record(path, kindAdded)
		return nil
	})
}

// forgetDir drops the watches of a removed directory and reports whether
// path was a watched directory.
func (watcher *Watcher) forgetDir(path string) bool {
	watcher.mutex.Lock()
	if _, ok := watcher.watched[path]; !ok {
		watcher.mutex.Unlock()
		return false
	}
	prefix := path + string(os.PathSeparator)
	removed := []string{}
	for dir := range watcher.watched {
		if dir == path || strings.HasPrefix(dir, prefix) {
			removed = append(removed, dir)
			delete(watcher.watched, dir)
		}
	}
	source := watcher.watcher
	watcher.mutex.Unlock()

	if source != nil {
		for _, dir := range removed {
			// The kernel drops watches of deleted directories on its own.
			_ = source.Remove(dir)
		}
	}
	watcher.logDebug("watch removed", path, watcher.activeWatches())
	return true
}

func (watcher *Watcher) addWatch(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	if _, ok := watcher.watched[path]; ok {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.watched[path] = struct{}{}
	activeCount := len(watcher.watched)
	source := watcher.watcher
	watcher.mutex.Unlock()

	if source == nil {
		return nil
	}
	if err := source.Add(path); err != nil {
		watcher.mutex.Lock()
		delete(watcher.watched, path)
		watcher.mutex.Unlock()
		return err
	}
	watcher.logDebug("watch added", path, activeCount)
	return nil
}

func (watcher *Watcher) removeWatches(paths []string) {
	watcher.mutex.Lock()
	source := watcher.watcher
	for _, path := range paths {
		delete(watcher.watched, path)
	}
	watcher.mutex.Unlock()
	if source == nil {
		return
	}
	for _, path := range paths {
		_ = source.Remove(path)
	}
}

func (watcher *Watcher) activeWatches() int {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return len(watcher.watched)
}

func (watcher *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(watcher.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (watcher *Watcher) ignored(rel string) bool {
	for _, segment := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
		if watcher.ignoredDir(segment) {
			return true
		}
	}
	for _, pattern := range watcher.ignore {
		if pattern.MatchString(rel) {
			return true
		}
	}
	return false
}

func (watcher *Watcher) ignoredDir(name string) bool {
	_, ok := watcher.ignoreDirs[name]
	return ok
}
