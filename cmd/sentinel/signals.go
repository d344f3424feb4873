package main

import (
	"os"
	"sync/atomic"

	"sentinel/internal/logging"
)

type signalAction int

const (
	actionNone signalAction = iota
	actionShutdown
	actionPause
	actionResume
	actionReevaluate
)

type signalActions struct {
	Shutdown   func()
	Pause      func()
	Resume     func()
	Reevaluate func()
}

// watchSignals runs the action mapped to each received signal until the
// returned stop function is called. Only the first shutdown signal cancels;
// repeats are logged once.
func watchSignals(logger *logging.Logger, actions signalActions, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	done := make(chan struct{})
	var shutdownStarted atomic.Bool
	var loggedRepeat atomic.Bool

	go func() {
		for {
			select {
			case <-done:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				fields := map[string]string{}
				if sig != nil {
					fields["signal"] = sig.String()
				}
				switch classifySignal(sig) {
				case actionShutdown:
					if shutdownStarted.CompareAndSwap(false, true) {
						logger.Info("shutdown signal received", fields)
						call(actions.Shutdown)
						continue
					}
					if loggedRepeat.CompareAndSwap(false, true) {
						logger.Info("shutdown already in progress; ignoring signal", fields)
					}
				case actionPause:
					logger.Debug("pause signal received", fields)
					call(actions.Pause)
				case actionResume:
					logger.Debug("resume signal received", fields)
					call(actions.Resume)
				case actionReevaluate:
					logger.Debug("reevaluate signal received", fields)
					call(actions.Reevaluate)
				}
			}
		}
	}()

	return func() {
		close(done)
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
