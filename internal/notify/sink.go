package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sentinelotel "sentinel/internal/otel"

	"go.opentelemetry.io/otel/attribute"
)

type Event struct {
	Type       Type
	Title      string
	Message    string
	Image      string
	Priority   int
	Fields     map[string]string
	OccurredAt time.Time
}

type Sink interface {
	Emit(ctx context.Context, event Event) error
}

type MemorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (sink *MemorySink) Emit(_ context.Context, event Event) error {
	if sink == nil {
		return nil
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
	return sink.err
}

func (sink *MemorySink) Events() []Event {
	if sink == nil {
		return nil
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	events := make([]Event, len(sink.events))
	copy(events, sink.events)
	return events
}

func (sink *MemorySink) SetError(err error) {
	if sink == nil {
		return
	}
	sink.mu.Lock()
	sink.err = err
	sink.mu.Unlock()
}

// FileSink overwrites a file with the latest notification, one field per
// line: type, title, message. Status bars and editors poll it.
type FileSink struct {
	Path string
}

func (sink FileSink) Emit(_ context.Context, event Event) error {
	if strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("file sink: %w", ErrSinkUnavailable)
	}
	body := fmt.Sprintf("%s\n%s\n%s\n", event.Type, event.Title, event.Message)
	return os.WriteFile(sink.Path, []byte(body), 0o644)
}

// CommandSink runs an external notifier such as notify-send. Args may use
// {title}, {message}, {type} and {image} placeholders; without args the
// title and message are appended.
type CommandSink struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (sink CommandSink) Emit(ctx context.Context, event Event) error {
	command := strings.TrimSpace(sink.Command)
	if command == "" {
		return fmt.Errorf("command sink: %w", ErrSinkUnavailable)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := sink.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := sink.Args
	if len(args) == 0 {
		args = []string{"{title}", "{message}"}
	}
	replacer := strings.NewReplacer(
		"{title}", event.Title,
		"{message}", event.Message,
		"{type}", string(event.Type),
		"{image}", event.Image,
	)
	expanded := make([]string, len(args))
	for index, arg := range args {
		expanded[index] = replacer.Replace(arg)
	}
	output, err := exec.CommandContext(ctx, command, expanded...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("command sink %s: %w: %s", command, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// TerminalTitleSink sets the terminal window title with an xterm escape.
type TerminalTitleSink struct {
	Writer io.Writer
}

func (sink TerminalTitleSink) Emit(_ context.Context, event Event) error {
	writer := sink.Writer
	if writer == nil {
		writer = os.Stdout
	}
	message := strings.ReplaceAll(event.Message, "\n", " - ")
	_, err := fmt.Fprintf(writer, "\x1b]2;[%s] %s\x07", event.Title, message)
	return err
}

// SpanSink records notifications as events on the span carried by ctx.
type SpanSink struct{}

func (SpanSink) Emit(ctx context.Context, event Event) error {
	attrs := []attribute.KeyValue{
		attribute.String("notify.type", string(event.Type)),
		attribute.String("notify.title", event.Title),
		attribute.String("notify.message", event.Message),
	}
	attrs = append(attrs, sentinelotel.StringAttributes(event.Fields)...)
	sentinelotel.RecordSpanEvent(ctx, "sentinel.notify", attrs...)
	return nil
}
