//go:build windows

package plugins

import (
	"io"
	"os/exec"
)

// runWithPty falls back to plain pipes; creack/pty has no Windows support.
func runWithPty(cmd *exec.Cmd, w io.Writer, started func() func()) error {
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		return err
	}
	untrack := started()
	defer untrack()
	return cmd.Wait()
}
