//go:build windows

package process

import (
	"context"
	"os"
	"os/exec"
	"time"
)

func GroupID(pid int) int {
	return 0
}

// Prepare makes context cancellation kill cmd; Windows has no process
// groups to signal.
func Prepare(cmd *exec.Cmd, _ bool) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = defaultStopTimeout + time.Second
}

func stopProcess(ctx context.Context, pid, _ int) error {
	if pid <= 0 {
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return ErrProcessNotFound
	}
	_ = process.Kill()
	deadline, err := waitDeadline(ctx)
	if err != nil {
		return err
	}
	for time.Now().Before(deadline) {
		if _, err := os.FindProcess(pid); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return context.DeadlineExceeded
}
