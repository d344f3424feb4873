package logging

import (
	"sync"
	"testing"
)

func TestLogBufferCircular(t *testing.T) {
	buffer := NewLogBuffer(2)
	buffer.Add(LogEntry{Message: "first"})
	buffer.Add(LogEntry{Message: "second"})
	buffer.Add(LogEntry{Message: "third"})

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "second" || entries[1].Message != "third" {
		t.Fatalf("expected second, third, got %q, %q", entries[0].Message, entries[1].Message)
	}
}

func TestLogBufferMessagesFiltersLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	buffer.Add(LogEntry{Level: LevelDebug, Message: "noise"})
	buffer.Add(LogEntry{Level: LevelError, Message: "broken"})
	buffer.Add(LogEntry{Level: LevelInfo, Message: "started"})

	messages := buffer.Messages(LevelInfo)
	if len(messages) != 2 || messages[0] != "broken" || messages[1] != "started" {
		t.Fatalf("expected broken, started, got %v", messages)
	}
}

func TestLogBufferConcurrentAdds(t *testing.T) {
	buffer := NewLogBuffer(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				buffer.Add(LogEntry{Message: "entry"})
			}
		}()
	}
	wg.Wait()

	if entries := buffer.List(); len(entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(entries))
	}
}

func TestNilLogBufferIsSafe(t *testing.T) {
	var buffer *LogBuffer
	buffer.Add(LogEntry{Message: "ignored"})
	if entries := buffer.List(); entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}
