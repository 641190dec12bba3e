//go:build unix

package sys

import (
	"os"
	"os/signal"
	"syscall"
)

func notifySignals() chan os.Signal {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	// Job-control signals are caught rather than ignored: an ignored
	// disposition survives exec, which would make every job immune to Ctrl-Z.
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP,
		syscall.SIGTTIN, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGUSR1,
		syscall.SIGWINCH)
	return sigCh
}
