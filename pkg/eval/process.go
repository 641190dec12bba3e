package eval

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"src.lsh.sh/pkg/errutil"
	"src.lsh.sh/pkg/jobs"
	"src.lsh.sh/pkg/sys"
)

type runOpts struct {
	background bool
	// Whether the standard output of the last command is captured and
	// returned.
	capture bool
	// Text of the job.
	text string
}

// Runs a resolved pipeline and returns its status and, when capturing, its
// output.
//
// A lone builtin or function without redirections or assignments runs in this
// process. Otherwise every command becomes a process: externals are executed
// directly, builtins and functions in a re-executed child. All processes of a
// pipeline share a new process group, except in a child of the shell, whose
// foreground pipelines stay in the group of the job it belongs to.
func (fm *Frame) runPipeline(p Pipeline, opts runOpts) (uint8, []byte) {
	if len(p) == 1 && !opts.background && !opts.capture {
		if status, ok := fm.runInProcess(p[0]); ok {
			return status, nil
		}
	}

	n := len(p)
	var capR, capW *os.File
	if opts.capture {
		var err error
		capR, capW, err = os.Pipe()
		if err != nil {
			fm.complainf("cannot create pipe: %v", err)
			return 1, nil
		}
	}
	// pipes[i] connects command i to command i+1.
	pipes := make([][2]*os.File, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			fm.complainf("cannot create pipe: %v", err)
			closeFiles(capR, capW)
			for _, pipe := range pipes[:i] {
				closeFiles(pipe[0], pipe[1])
			}
			return 1, nil
		}
		pipes[i] = [2]*os.File{r, w}
	}

	newGroup := opts.background || !fm.forked
	tty := -1
	if !opts.background {
		tty = fm.tty()
	}
	pgid := 0
	var pids []int
	lastStatus := uint8(0)
	lastStarted := false
	for i, cmd := range p {
		std := [3]*os.File{fm.ports[0], fm.ports[1], fm.ports[2]}
		if i > 0 {
			std[0] = pipes[i-1][0]
		}
		if i < n-1 {
			std[1] = pipes[i][1]
		} else if capW != nil {
			std[1] = capW
		}
		pid, status, err := fm.startCommand(cmd, std, newGroup, pgid)
		if i > 0 {
			closeFiles(pipes[i-1][0])
		}
		if i < n-1 {
			closeFiles(pipes[i][1])
		}
		if err != nil {
			fm.complain(err)
		}
		if i == n-1 {
			lastStatus, lastStarted = status, pid != 0
		}
		if pid == 0 {
			continue
		}
		if pgid == 0 && newGroup {
			pgid = pid
			// The terminal goes to the group as soon as its leader exists,
			// so that the pipeline can read from it right away.
			if tty >= 0 {
				if err := sys.GiveTerminal(tty, pgid); err != nil {
					logger.Printf("give terminal to %d: %v", pgid, err)
				}
			}
		}
		pids = append(pids, pid)
	}
	closeFiles(capW)

	var out []byte
	readDone := make(chan struct{})
	if capR != nil {
		go func() {
			defer close(readDone)
			var err error
			out, err = io.ReadAll(capR)
			if err != nil {
				logger.Println("reading captured output:", err)
			}
			capR.Close()
		}()
	} else {
		close(readDone)
	}

	if len(pids) == 0 {
		<-readDone
		return lastStatus, out
	}
	if opts.background {
		j := fm.Jobs.Add(pgid, pids, opts.text, jobs.Running)
		if fm.State.Interactive {
			fm.notify("[%d] %d", j.ID, pids[len(pids)-1])
		}
		fm.Jobs.Reap()
		return 0, nil
	}

	j := jobs.New(pgid, pids, opts.text)
	status := fm.waitForeground(j, tty)
	if status == jobs.StopStatus && fm.Jobs.Info(j).Status == jobs.Stopped {
		if capR != nil {
			// Stops the reader; the output of a stopped job is dropped.
			capR.Close()
		}
		return status, nil
	}
	<-readDone
	if !lastStarted {
		status = lastStatus
	}
	return status, out
}

// Runs a command in this process if it can be. The second return value is
// false if it cannot.
func (fm *Frame) runInProcess(cmd *ExpandedCommand) (uint8, bool) {
	switch {
	case cmd.Kind == CommandNone:
		for _, a := range cmd.Env {
			fm.State.Set(a.Name, a.Values)
		}
		status, err := touchRedirs(cmd.Redirs, fm.Cwd())
		if err != nil {
			fm.complain(err)
		}
		return status, true
	case len(cmd.Redirs) > 0 || len(cmd.Env) > 0:
		return 0, false
	case cmd.Kind == CommandBuiltin:
		return cmd.builtin(fm, cmd.Argv[1:]), true
	case cmd.Kind == CommandFunction:
		return fm.callFunction(cmd.fn, cmd.Argv[1:]), true
	}
	return 0, false
}

// Opens and closes the files of redirections without running anything, so
// that "> f" alone creates f.
func touchRedirs(redirs []Redir, cwd string) (uint8, error) {
	_, opened, err := openRedirs(redirs, [3]*os.File{}, cwd)
	closeFiles(opened...)
	if err != nil {
		return 1, err
	}
	return 0, nil
}

// Starts one command of a pipeline with the given standard files. It returns
// the pid, or 0 when no process was started, in which case the status is
// that of the command.
func (fm *Frame) startCommand(cmd *ExpandedCommand, std [3]*os.File, newGroup bool, pgid int) (int, uint8, error) {
	if cmd.Kind == CommandNone {
		status, err := touchRedirs(cmd.Redirs, fm.Cwd())
		return 0, status, err
	}
	name := cmd.Argv[0]
	switch cmd.Kind {
	case CommandNotFound:
		return 0, 127, fmt.Errorf("%s: command not found", name)
	case CommandNotExecutable:
		return 0, 126, fmt.Errorf("%s: permission denied", name)
	}

	files, opened, err := openRedirs(cmd.Redirs, std, fm.Cwd())
	defer closeFiles(opened...)
	if err != nil {
		return 0, 1, err
	}
	environ := fm.State.Environ(cmd.environ())
	var pid int
	switch cmd.Kind {
	case CommandExternal:
		pid, err = spawn(cmd.Path, cmd.Argv, environ, fm.Cwd(), files, newGroup, pgid)
	case CommandBuiltin:
		pid, err = fm.spawnForked(forkBuiltin, cmd.Argv, environ, files, newGroup, pgid)
	case CommandFunction:
		pid, err = fm.spawnForked(forkFunction, cmd.Argv, environ, files, newGroup, pgid)
	default:
		return 0, 1, fmt.Errorf("cannot run %s command %s", cmd.Kind, name)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 127, fmt.Errorf("%s: %w", name, err)
		}
		return 0, 126, fmt.Errorf("%s: %w", name, err)
	}
	return pid, 0, nil
}

var errBadFD = errors.New("bad file descriptor")

// Builds the file table of a process from its standard files and
// redirections, applied left to right. It also returns the files it opened,
// which the caller must close after the process has started.
func openRedirs(redirs []Redir, std [3]*os.File, cwd string) (files, opened []*os.File, err error) {
	files = std[:]
	for _, r := range redirs {
		for len(files) <= r.FromFD {
			files = append(files, nil)
		}
		if r.Kind == RedirDup {
			if r.TargetFD >= len(files) || files[r.TargetFD] == nil {
				return nil, opened, fmt.Errorf("%d>&%d: %w", r.FromFD, r.TargetFD, errBadFD)
			}
			files[r.FromFD] = files[r.TargetFD]
			continue
		}
		path := r.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		var flag int
		switch r.Kind {
		case RedirRead:
			flag = os.O_RDONLY
		case RedirWrite:
			flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		case RedirAppend:
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0644)
		if err != nil {
			return nil, opened, err
		}
		opened = append(opened, f)
		files[r.FromFD] = f
	}
	return files, opened, nil
}

func closeFiles(files ...*os.File) {
	var errs []error
	for _, f := range files {
		if f != nil {
			errs = append(errs, f.Close())
		}
	}
	if err := errutil.Multi(errs...); err != nil {
		logger.Println("closing files:", err)
	}
}
