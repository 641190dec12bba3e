//go:build unix

package eval

import (
	"fmt"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/getopt"
	"src.lsh.sh/pkg/jobs"
)

// Job control.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"fg":   fg,
		"bg":   bg,
		"jobs": jobsFn,
	})
}

// Finds the job named by an argument of fg or bg, either "%N" or "N". Without
// an argument it is the most recent job.
func (fm *Frame) findJob(name string, args []string) (*jobs.Job, uint8, bool) {
	switch len(args) {
	case 0:
		j, ok := fm.Jobs.Last()
		if !ok {
			return nil, fm.failf(name, "no current job"), false
		}
		return j, 0, true
	case 1:
		id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "%"), 10, 16)
		if err != nil {
			return nil, fm.usage(name, "bad job %q", args[0]), false
		}
		j, ok := fm.Jobs.Get(uint16(id))
		if !ok {
			return nil, fm.failf(name, "no job %d", id), false
		}
		return j, 0, true
	default:
		return nil, fm.usage(name, "takes at most one argument"), false
	}
}

// fg continues a job in the foreground and waits for it.
func fg(fm *Frame, args []string) uint8 {
	fm.Jobs.Reap()
	j, status, ok := fm.findJob("fg", args)
	if !ok {
		return status
	}
	if fm.State.Interactive {
		fmt.Fprintln(fm.Stderr(), j.Text)
	}
	status, stopped, err := fm.Jobs.Foreground(j, fm.tty())
	if err != nil {
		return fm.failf("fg", "%v", err)
	}
	if stopped {
		fm.notify("\n[%d]+ Stopped\t%s", j.ID, j.Text)
		return jobs.StopStatus
	}
	return status
}

// bg continues a stopped job in the background.
func bg(fm *Frame, args []string) uint8 {
	fm.Jobs.Reap()
	j, status, ok := fm.findJob("bg", args)
	if !ok {
		return status
	}
	if err := fm.Jobs.Background(j); err != nil {
		return fm.failf("bg", "%v", err)
	}
	info := fm.Jobs.Info(j)
	fm.notify("[%d] %d %s", info.ID, info.Pgid, info.Text)
	return 0
}

var jobsOptSpecs = []*getopt.OptionSpec{{Short: 'p', Long: "pgid"}}

// jobs lists the jobs. With -p only their process group IDs are listed.
func jobsFn(fm *Frame, args []string) uint8 {
	opts, args, ok := fm.parseOpts("jobs", args, jobsOptSpecs)
	if !ok {
		return 2
	}
	if len(args) > 0 {
		return fm.usage("jobs", "takes no arguments")
	}
	pgidsOnly := len(opts) > 0
	fm.Jobs.Reap()
	out := fm.Stdout()
	for _, info := range fm.Jobs.List() {
		if pgidsOnly {
			fmt.Fprintln(out, info.Pgid)
		} else {
			fmt.Fprintf(out, "[%d] %s\t%s\n", info.ID, info.Status, info.Text)
		}
	}
	return 0
}
