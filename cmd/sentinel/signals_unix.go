//go:build !windows

package main

import (
	"os"
	"syscall"
)

func watchedSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP}
}

func classifySignal(sig os.Signal) signalAction {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return actionShutdown
	case syscall.SIGUSR1:
		return actionPause
	case syscall.SIGUSR2:
		return actionResume
	case syscall.SIGHUP:
		return actionReevaluate
	default:
		return actionNone
	}
}
