package logging

import (
	"sync"

	"sentinel/internal/buffer"
)

// LogBuffer keeps the most recent entries for inspection (tests, `list`).
type LogBuffer struct {
	mu      sync.Mutex
	entries *buffer.Ring[LogEntry]
}

func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{
		entries: buffer.NewRing[LogEntry](size),
	}
}

func (b *LogBuffer) Add(entry LogEntry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries.Add(entry)
}

func (b *LogBuffer) List() []LogEntry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.List()
}

// Messages returns the message of every buffered entry at or above level.
func (b *LogBuffer) Messages(level Level) []string {
	entries := b.List()
	messages := make([]string, 0, len(entries))
	for _, entry := range entries {
		if LevelAtLeast(entry.Level, level) {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}
