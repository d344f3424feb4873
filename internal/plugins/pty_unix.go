//go:build !windows

package plugins

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// runWithPty runs cmd attached to a pseudo terminal so tools keep their
// colored, line-buffered output, and copies that output to w. started is
// called once the process runs; the function it returns once it has exited.
func runWithPty(cmd *exec.Cmd, w io.Writer, started func() func()) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()
	untrack := started()
	defer untrack()

	_, copyErr := io.Copy(w, ptmx)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return waitErr
	}
	// Reading a pty whose child exited ends with EIO on Linux.
	if copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		return copyErr
	}
	return nil
}
