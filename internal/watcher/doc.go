// Package watcher turns fsnotify events under one or more directories into
// debounced change batches of modified, added and removed paths.
//
// Events for the same path inside one debounce window are coalesced, so a
// file created and then written is reported once as added, and a file
// created and removed again is not reported at all. Paths are relative to
// the watch root and use forward slashes.
package watcher
