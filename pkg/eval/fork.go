package eval

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/jobs"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/state"
)

// A builtin or function that is part of a pipeline, redirected or captured
// runs in a child process. Since a Go program cannot fork without exec, the
// shell binary is re-executed with the variable LSH_FORKED holding the number
// of a file descriptor, from which the child reads a snapshot of the state.
// The arguments of the child say what to run:
//
//	builtin NAME ARG...
//	function NAME ARG...
//	code SOURCE-NAME CODE
const (
	forkBuiltin  = "builtin"
	forkFunction = "function"
	forkCode     = "code"
)

var errNoSelf = errors.New("cannot find the shell executable")

// Starts a re-executed child with the given file table. The snapshot
// descriptor is appended to the table.
func (fm *Frame) spawnForked(kind string, args, environ []string, files []*os.File, newGroup bool, pgid int) (int, error) {
	if fm.SelfPath == "" {
		return 0, errNoSelf
	}
	var buf bytes.Buffer
	if err := state.Encode(&buf, fm.snapshot()); err != nil {
		return 0, err
	}
	r, w, err := os.Pipe()
	if err != nil {
		return 0, err
	}
	files = append(files[:len(files):len(files)], r)
	environ = append(environ[:len(environ):len(environ)],
		env.LSH_FORKED+"="+strconv.Itoa(len(files)-1))
	argv := append([]string{fm.SelfPath, kind}, args...)

	pid, err := spawn(fm.SelfPath, argv, environ, fm.Cwd(), files, newGroup, pgid)
	r.Close()
	if err != nil {
		w.Close()
		return 0, err
	}
	go func() {
		if _, err := w.Write(buf.Bytes()); err != nil {
			logger.Printf("writing state to pid %d: %v", pid, err)
		}
		w.Close()
	}()
	return pid, nil
}

// Returns a snapshot of the state for a child. Universal variables are copied
// into the global scope, since the child has no access to the store.
func (fm *Frame) snapshot() *state.Snapshot {
	snap := fm.State.Snapshot()
	if fm.Store == nil || len(snap.Scopes) == 0 {
		return snap
	}
	names, err := fm.Store.UniversalVarNames()
	if err != nil {
		logger.Println("listing universal vars:", err)
		return snap
	}
	global := snap.Scopes[0].Vars
	for _, name := range names {
		if _, ok := global[name]; ok {
			continue
		}
		if values, err := fm.Store.UniversalVar(name); err == nil {
			global[name] = values
		}
	}
	return snap
}

// Runs a child in the process group of the shell and returns its output and
// exit status.
func (fm *Frame) captureForked(kind string, args []string) ([]byte, uint8, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, 1, err
	}
	files := []*os.File{fm.ports[0], w, fm.ports[2]}
	pid, err := fm.spawnForked(kind, args, fm.State.Environ(nil), files, false, 0)
	w.Close()
	if err != nil {
		r.Close()
		return nil, 1, err
	}
	out, err := io.ReadAll(r)
	r.Close()
	status, _ := fm.Jobs.Wait(jobs.New(0, []int{pid}, kind), -1)
	return out, status, err
}

// Runs code in a re-executed child as a background job.
func (fm *Frame) runForkedBackground(args []string, text string) uint8 {
	files := []*os.File{fm.ports[0], fm.ports[1], fm.ports[2]}
	pid, err := fm.spawnForked(forkCode, args, fm.State.Environ(nil), files, true, 0)
	if err != nil {
		fm.complain(err)
		return 1
	}
	j := fm.Jobs.Add(pid, []int{pid}, text, jobs.Running)
	if fm.State.Interactive {
		fm.notify("[%d] %d", j.ID, pid)
	}
	fm.Jobs.Reap()
	return 0
}

// RunForked runs the task of a re-executed child if this process is one. It
// returns the exit status and true in that case, and false otherwise.
//
// Programs that run lsh code, including test binaries, must call it before
// doing anything else.
func RunForked() (int, bool) {
	fdText, ok := os.LookupEnv(env.LSH_FORKED)
	if !ok {
		return 0, false
	}
	os.Unsetenv(env.LSH_FORKED)
	return runForked(fdText, os.Args[1:]), true
}

func runForked(fdText string, args []string) int {
	fd, err := strconv.Atoi(fdText)
	if err != nil || len(args) < 2 {
		fmt.Fprintln(os.Stderr, "lsh: bad invocation of forked child")
		return 2
	}
	f := os.NewFile(uintptr(fd), "state")
	snap, err := state.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lsh: cannot read state:", err)
		return 2
	}

	ev := NewEvalerWithState(state.Restore(snap))
	ev.forked = true
	kind, name, rest := args[0], args[1], args[2:]
	logger.Printf("forked child pid %d running %s %s", os.Getpid(), kind, name)
	fm := ev.NewTopFrame(parse.Source{Name: "[forked " + name + "]"})

	var status uint8
	switch kind {
	case forkBuiltin:
		fn, ok := ev.builtins[name]
		if !ok {
			fm.complainf("%s: builtin not available in a child process", name)
			return 127
		}
		status = fn(fm, rest)
	case forkFunction:
		fn, ok := ev.State.Function(name)
		if !ok {
			fm.complainf("%s: function not found", name)
			return 127
		}
		status = fm.callFunction(fn, rest)
	case forkCode:
		if len(rest) != 1 {
			fm.complainf("code child needs exactly one piece of code")
			return 2
		}
		status, err = ev.Execute(parse.Source{Name: name, Code: rest[0]})
		if err != nil {
			diag.ShowError(os.Stderr, err)
		}
	default:
		fm.complainf("unknown child kind %q", kind)
		return 2
	}
	if exitStatus, ok := ev.Exited(); ok {
		status = exitStatus
	}
	return int(status)
}
