package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/sys"
)

// Determines whether a panic results in a rescue shell being launched. Unit
// tests set it to false.
var interactiveRescueShell = true

// Configuration for the interactive mode.
type interactCfg struct {
	// Path of the rc file; empty to not source any.
	RC string
}

// Interactive mode panic handler.
func handlePanic() {
	r := recover()
	if r != nil {
		println()
		print(sys.DumpStack())
		println()
		fmt.Println(r)
		println("\nExecing recovery shell /bin/sh")
		syscall.Exec("/bin/sh", []string{"/bin/sh"}, os.Environ())
	}
}

// Runs an interactive session until EOF or the exit builtin, and returns the
// exit status of the shell.
func interact(ev *eval.Evaler, fds [3]*os.File, cfg *interactCfg) int {
	if interactiveRescueShell {
		defer handlePanic()
	}
	ev.State.Interactive = true
	if sys.IsATTY(fds[0].Fd()) {
		if err := sys.PutSelfInFg(int(fds[0].Fd())); err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot take the terminal:", err)
			fmt.Fprintln(fds[2], "Job control is disabled.")
		} else {
			ev.TTY = int(fds[0].Fd())
		}
	}
	stopSignals := handleSignals(ev, fds[2])
	defer stopSignals()
	stopReaper := ev.Jobs.Start()
	defer stopReaper()

	if cfg.RC != "" {
		if err := sourceRC(ev, cfg.RC); err != nil {
			diag.ShowError(fds[2], err)
		}
		if exit, ok := ev.Exited(); ok {
			return int(exit)
		}
	}

	rd := newLineReader(fds[0], fds[2])
	cmdNum := 0
	for {
		showNotifications(ev, fds[2])
		src, err := readCode(rd, ev, cmdNum+1)
		if err == io.EOF {
			break
		} else if err != nil {
			diag.ShowError(fds[2], err)
			continue
		}
		if strings.TrimSpace(src.Code) == "" {
			continue
		}
		cmdNum++
		if ev.Store != nil {
			if _, err := ev.Store.AddCmd(src.Code); err != nil {
				logger.Println("adding command to history:", err)
			}
		}

		_, err = ev.Execute(src)
		if err != nil {
			diag.ShowError(fds[2], err)
		}
		if exit, ok := ev.Exited(); ok {
			return int(exit)
		}
	}
	fmt.Fprintln(fds[2])
	return int(ev.State.Status())
}

// Reads lines until they form complete code. A parse error at the end of the
// input asks for another line, so that blocks can span lines; other parse
// errors are returned right away.
func readCode(rd *lineReader, ev *eval.Evaler, cmdNum int) (parse.Source, error) {
	name := fmt.Sprintf("[tty %v]", cmdNum)
	ps := prompt(ev)
	code := ""
	for {
		line, err := rd.ReadLine(ps)
		if err == io.EOF && code != "" {
			// The input ended in the middle of a block.
			src := parse.Source{Name: name, Code: code}
			_, perr := parse.Parse(src)
			return src, perr
		}
		if err != nil {
			return parse.Source{}, err
		}
		if code == "" {
			code = line
		} else {
			code += "\n" + line
		}
		src := parse.Source{Name: name, Code: code}
		_, perr := parse.Parse(src)
		if e := parse.GetError(perr); e != nil && e.Partial {
			ps = "> "
			continue
		}
		if perr != nil {
			return src, perr
		}
		return src, nil
	}
}

func prompt(ev *eval.Evaler) string {
	return fsutil.TildeAbbr(ev.State.Cwd(), ev.State.Home()) + "> "
}

// Shows the notifications of jobs that finished or changed state since the
// last prompt.
func showNotifications(ev *eval.Evaler, stderr io.Writer) {
	ev.Jobs.Reap()
	for _, note := range ev.Jobs.Notifications() {
		fmt.Fprintln(stderr, note)
	}
}

func sourceRC(ev *eval.Evaler, path string) error {
	code, err := readFileUTF8(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err = ev.Execute(parse.Source{Name: path, Code: code, IsFile: true})
	return err
}
