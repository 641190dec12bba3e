//go:build unix

package jobs

import (
	"errors"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"src.lsh.sh/pkg/sys"
)

// StopStatus is the exit status of a pipeline stopped by SIGTSTP.
const StopStatus = 128 + uint8(unix.SIGTSTP)

// Start subscribes to SIGCHLD and calls Reap on every delivery, until the
// returned function is called.
func (t *Table) Start() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGCHLD)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				t.Reap()
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

// Reap collects state changes of the processes of all jobs that are not
// waited for in the foreground. It never blocks, and only waits for pids it
// knows about, so it never steals the status of a process waited for
// elsewhere.
//
// Jobs whose processes have all finished are marked Done, removed from the
// table and reported in Notifications.
func (t *Table) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.foreground || j.Status == Done {
			continue
		}
		for _, p := range j.Procs {
			if p.Done {
				continue
			}
			var ws unix.WaitStatus
			pid, err := unix.Wait4(p.Pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
			switch {
			case errors.Is(err, unix.ECHILD):
				logger.Printf("pid %d of job %d already reaped", p.Pid, j.ID)
				p.Done = true
			case err != nil:
				logger.Printf("wait4 %d: %v", p.Pid, err)
			case pid == p.Pid:
				updateLocked(j, p, ws)
			}
		}
		if j.allDone() {
			logger.Printf("job %d done", j.ID)
			t.finishLocked(j)
			t.notifyLocked("[%d] Done\t%s", j.ID, j.Text)
		}
	}
}

func updateLocked(j *Job, p *Proc, ws unix.WaitStatus) {
	switch {
	case ws.Exited(), ws.Signaled():
		p.Done, p.Code = true, exitCode(ws)
	case ws.Stopped():
		j.Status = Stopped
	case ws.Continued():
		j.Status = Running
	}
}

func exitCode(ws unix.WaitStatus) uint8 {
	switch {
	case ws.Exited():
		return uint8(ws.ExitStatus())
	case ws.Signaled():
		return 128 + uint8(ws.Signal())
	case ws.Stopped():
		return 128 + uint8(ws.StopSignal())
	}
	return 0
}

// Wait waits for a job in the foreground. If tty is not negative and the job
// has a process group, that group is made the foreground process group of the
// terminal while waiting, and the shell takes it back afterwards.
//
// It returns when all processes have finished, or as soon as one of them is
// stopped. In the latter case the job is marked Stopped, the returned status
// is 128 plus the stop signal and stopped is true. Otherwise the job is marked
// Done, removed from the table if it was in one, and the status is that of the
// last process.
func (t *Table) Wait(j *Job, tty int) (status uint8, stopped bool) {
	t.setForeground(j, true)
	defer t.setForeground(j, false)
	return t.wait(j, tty)
}

// Foreground continues a job and waits for it in the foreground, like Wait.
func (t *Table) Foreground(j *Job, tty int) (status uint8, stopped bool, err error) {
	// The reaper must not collect the job once it is continued.
	t.setForeground(j, true)
	defer t.setForeground(j, false)
	if err := t.cont(j); err != nil {
		return 1, false, err
	}
	status, stopped = t.wait(j, tty)
	return status, stopped, nil
}

// Background continues a job without waiting for it.
func (t *Table) Background(j *Job) error {
	return t.cont(j)
}

func (t *Table) setForeground(j *Job, fg bool) {
	t.mu.Lock()
	j.foreground = fg
	t.mu.Unlock()
}

func (t *Table) wait(j *Job, tty int) (uint8, bool) {
	if tty >= 0 && j.Pgid != 0 {
		if err := sys.GiveTerminal(tty, j.Pgid); err != nil {
			logger.Printf("give terminal to %d: %v", j.Pgid, err)
		}
		defer func() {
			if err := sys.GiveTerminal(tty, unix.Getpgrp()); err != nil {
				logger.Printf("reclaim terminal: %v", err)
			}
		}()
	}

	for _, p := range j.Procs {
		if p.Done {
			continue
		}
		var ws unix.WaitStatus
		var err error
		for {
			_, err = unix.Wait4(p.Pid, &ws, unix.WUNTRACED, nil)
			if !errors.Is(err, unix.EINTR) {
				break
			}
		}
		t.mu.Lock()
		switch {
		case err != nil:
			logger.Printf("wait4 %d: %v", p.Pid, err)
			p.Done = true
		case ws.Stopped():
			j.Status = Stopped
			t.mu.Unlock()
			logger.Printf("job %q stopped by %v", j.Text, ws.StopSignal())
			return exitCode(ws), true
		default:
			p.Done, p.Code = true, exitCode(ws)
		}
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked(j)
	return j.ExitStatus(), false
}

// The job is marked Running only once it has been sent SIGCONT.
func (t *Table) cont(j *Job) error {
	if err := t.Signal(j, unix.SIGCONT); err != nil {
		return err
	}
	t.mu.Lock()
	j.Status = Running
	t.mu.Unlock()
	return nil
}

// Signal sends a signal to the process group of a job, or to each of its
// unfinished processes if it has no group of its own.
func (t *Table) Signal(j *Job, sig unix.Signal) error {
	if j.Pgid != 0 {
		err := unix.Kill(-j.Pgid, sig)
		if err != nil {
			logger.Printf("kill -%v %d: %v", sig, -j.Pgid, err)
		}
		return err
	}
	t.mu.Lock()
	var pids []int
	for _, p := range j.Procs {
		if !p.Done {
			pids = append(pids, p.Pid)
		}
	}
	t.mu.Unlock()
	var errs []error
	for _, pid := range pids {
		if err := unix.Kill(pid, sig); err != nil {
			logger.Printf("kill -%v %d: %v", sig, pid, err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(pids) && len(errs) > 0 {
		return errs[0]
	}
	return nil
}
