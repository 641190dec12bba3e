//go:build unix

package eval

import (
	"os"
	"syscall"
)

// Starts a process. When newGroup is true the process is put in the process
// group pgid, or in a new group of its own when pgid is 0.
//
// The process is released right away; it is waited for by its pid.
func spawn(path string, argv, environ []string, dir string, files []*os.File, newGroup bool, pgid int) (int, error) {
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   dir,
		Env:   environ,
		Files: files,
		Sys:   &syscall.SysProcAttr{Setpgid: newGroup, Pgid: pgid},
	})
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	if err := proc.Release(); err != nil {
		logger.Printf("release pid %d: %v", pid, err)
	}
	logger.Printf("started %s as pid %d (new group %v, pgid %d)", path, pid, newGroup, pgid)
	return pid, nil
}
