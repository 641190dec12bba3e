//go:build unix

package sys

import (
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Tcsetpgrp sets the terminal foreground process group.
func Tcsetpgrp(fd int, pgid int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}

// Tcgetpgrp gets the terminal foreground process group.
func Tcgetpgrp(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

// OwnsTerminal reports whether the process group of the caller is the
// foreground process group of the terminal referred to by fd.
func OwnsTerminal(fd int) bool {
	pgid, err := Tcgetpgrp(fd)
	return err == nil && pgid == unix.Getpgrp()
}

// GiveTerminal makes pgid the foreground process group of the terminal
// referred to by fd.
//
// When the caller is itself in a background process group, tcsetpgrp raises
// SIGTTOU; it is ignored for the duration of the call, otherwise the call
// would either stop the shell or restart forever.
func GiveTerminal(fd int, pgid int) error {
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)
	return Tcsetpgrp(fd, pgid)
}

// PutSelfInFg puts the current process in its own process group and makes it
// the foreground process group of the terminal on fd. It does nothing if fd
// is not a terminal.
func PutSelfInFg(fd int) error {
	if !IsATTY(uintptr(fd)) {
		return nil
	}
	pid := syscall.Getpid()
	if pgid, _ := syscall.Getpgid(pid); pgid != pid {
		// Failing is fine when we are a session leader already.
		syscall.Setpgid(pid, pid)
	}
	return GiveTerminal(fd, syscall.Getpgrp())
}
