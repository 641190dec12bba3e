//go:build unix

package shell

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/sys"
)

// Catches the signals an interactive shell must survive. Foreground jobs
// get keyboard signals from the terminal directly, so the shell only logs
// them.
func handleSignals(ev *eval.Evaler, stderr *os.File) func() {
	sigCh := sys.NotifySignals()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				logger.Println("signal", signalName(sig))
				handleSignal(ev, sig, stderr)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func signalName(sig os.Signal) string {
	return unix.SignalName(sig.(syscall.Signal))
}

func handleSignal(ev *eval.Evaler, sig os.Signal, stderr *os.File) {
	switch sig {
	case syscall.SIGHUP:
		for _, info := range ev.Jobs.List() {
			unix.Kill(-info.Pgid, unix.SIGHUP)
			unix.Kill(-info.Pgid, unix.SIGCONT)
		}
		os.Exit(128 + int(syscall.SIGHUP))
	case syscall.SIGUSR1:
		fmt.Fprint(stderr, sys.DumpStack())
	}
}
