// Package plugin holds the data model shared by the dispatch engine: plugins,
// the groups they belong to, their watch rules and the registry that owns them.
//
// A Plugin exposes a closed set of lifecycle tasks. Whether a plugin
// implements a task is answered by Task, never by reflection, so the runner
// can pick the first implemented task from a priority list.
package plugin
