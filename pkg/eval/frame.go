package eval

import (
	"errors"
	"fmt"
	"os"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/expand"
	"src.lsh.sh/pkg/jobs"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/store/storedefs"
	"src.lsh.sh/pkg/sys"
)

// Frame is the context code runs in: the source being executed, the files
// serving as stdin, stdout and stderr, and what control flow is allowed. A new
// Frame is derived for each function call and sourced file; loops derive one
// that allows break and continue.
type Frame struct {
	*Evaler

	src   parse.Source
	ports [3]*os.File

	// Number of loops around the current statement in the current function.
	loops int
	// Whether return is allowed.
	canReturn bool
}

// NewTopFrame creates a Frame for running code from src at the top level.
func (ev *Evaler) NewTopFrame(src parse.Source) *Frame {
	return &Frame{Evaler: ev, src: src, ports: ev.ports}
}

// Stdin returns the file the frame reads input from.
func (fm *Frame) Stdin() *os.File { return fm.ports[0] }

// Stdout returns the file the frame writes output to.
func (fm *Frame) Stdout() *os.File { return fm.ports[1] }

// Stderr returns the file the frame writes errors to.
func (fm *Frame) Stderr() *os.File { return fm.ports[2] }

// Returns a copy of the frame running code from another source.
func (fm *Frame) forSource(src parse.Source) *Frame {
	return &Frame{Evaler: fm.Evaler, src: src, ports: fm.ports}
}

// Get implements expand.Context. Variables not found in the state are looked
// up among universal variables.
func (fm *Frame) Get(name string) ([]string, bool) {
	if values, ok := fm.State.Get(name); ok {
		return values, true
	}
	if fm.Store != nil {
		values, err := fm.Store.UniversalVar(name)
		if err == nil {
			return values, true
		} else if !errors.Is(err, storedefs.ErrNoVar) {
			logger.Printf("universal var %s: %v", name, err)
		}
	}
	return nil, false
}

// Cwd implements expand.Context.
func (fm *Frame) Cwd() string { return fm.State.Cwd() }

// Home implements expand.Context.
func (fm *Frame) Home() string { return fm.State.Home() }

// Capture implements expand.Context. The code runs in a re-executed child, so
// it cannot change the state of the shell.
func (fm *Frame) Capture(code string) ([]byte, error) {
	out, _, err := fm.captureForked(forkCode, []string{fm.src.Name, code})
	return out, err
}

var _ expand.Context = (*Frame)(nil)

// Errors returned by expansion are reported with this type.
const expansionErrorType = "expansion error"

// Wraps an error with the location of a node.
func (fm *Frame) errorp(r diag.Ranger, typ string, err error) error {
	return &diag.Error{
		Type:    typ,
		Message: err.Error(),
		Context: *diag.NewContext(fm.src.Name, fm.src.Code, r),
	}
}

// Reports an error on stderr.
func (fm *Frame) complain(err error) {
	diag.ShowError(fm.ports[2], err)
}

// Reports an error message on stderr.
func (fm *Frame) complainf(format string, args ...any) {
	diag.Complainf(fm.ports[2], format, args...)
}

// Prints a job notification on stderr.
func (fm *Frame) notify(format string, args ...any) {
	fmt.Fprintf(fm.ports[2], format+"\n", args...)
}

// Returns whether job control is on.
func (fm *Frame) jobControl() bool {
	return fm.TTY >= 0 && !fm.forked
}

// Returns the descriptor of the terminal to hand to foreground jobs, or -1.
// The terminal is only handed over while the shell is in its foreground
// process group.
func (fm *Frame) tty() int {
	if fm.jobControl() && sys.OwnsTerminal(fm.TTY) {
		return fm.TTY
	}
	return -1
}

// Waits for a job in the foreground. A job that gets stopped is put in the job
// table and reported.
func (fm *Frame) waitForeground(j *jobs.Job, tty int) uint8 {
	status, stopped := fm.Jobs.Wait(j, tty)
	if stopped {
		fm.Jobs.Insert(j)
		fm.notify("\n[%d]+ Stopped\t%s", j.ID, j.Text)
		return jobs.StopStatus
	}
	return status
}

func wholeRange(code string) diag.Ranging {
	return diag.Ranging{From: 0, To: len(code)}
}
