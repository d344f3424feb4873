package hook

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"sentinel/internal/logging"
)

// CommandListener runs a shell command when notified. The plugin type, the
// event and the stringified arguments are exported as SENTINEL_PLUGIN,
// SENTINEL_EVENT and SENTINEL_ARGS.
type CommandListener struct {
	Command string
	Shell   string
	Output  io.Writer
	Logger  *logging.Logger
}

func (c *CommandListener) Call(ctx context.Context, pluginType, event string, args ...any) {
	if c == nil || strings.TrimSpace(c.Command) == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shell := c.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", c.Command)
	cmd.Env = append(os.Environ(),
		"SENTINEL_PLUGIN="+pluginType,
		"SENTINEL_EVENT="+event,
		"SENTINEL_ARGS="+FormatArgs(args),
	)
	if c.Output != nil {
		cmd.Stdout = c.Output
		cmd.Stderr = c.Output
	}
	if err := cmd.Run(); err != nil && c.Logger != nil {
		c.Logger.Warn("hook command failed", map[string]string{
			"plugin.type": pluginType,
			"hook.event":  event,
			"command":     c.Command,
			"error":       err.Error(),
		})
	}
}

// FormatArgs renders hook arguments as a space separated list, flattening
// slices of paths.
func FormatArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch typed := arg.(type) {
		case nil:
			continue
		case []string:
			parts = append(parts, typed...)
		case []any:
			for _, item := range typed {
				if item != nil {
					parts = append(parts, fmt.Sprint(item))
				}
			}
		default:
			parts = append(parts, fmt.Sprint(typed))
		}
	}
	return strings.Join(parts, " ")
}
