// Package shell is the entry point for running lsh code: scripts, code passed
// with -c, code read from stdin and interactive sessions.
package shell

import (
	"fmt"
	"os"
	"strconv"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/logutil"
	"src.lsh.sh/pkg/prog"
	"src.lsh.sh/pkg/store"
	"src.lsh.sh/pkg/sys"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram.
type Program struct{}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if f.CodeInArg && len(args) == 0 {
		return prog.BadUsage("-c requires an argument")
	}
	interactive := len(args) == 0 && (f.Interactive || sys.IsATTY(fds[0].Fd()))

	restoreSHLVL := incSHLVL()
	defer restoreSHLVL()
	ev := eval.NewEvaler()
	ev.SetPorts(fds)
	for name, value := range f.Aliases {
		ev.State.SetAlias(name, value)
	}

	// Scripts only use the database when asked to, since an interactive
	// shell that runs them usually holds it.
	if f.DB != "" || interactive {
		closeStore := openStore(ev, fds[2], f.DB)
		defer closeStore()
	}

	if !interactive && sys.IsATTY(fds[0].Fd()) {
		// Scripts run from a terminal hand it to their foreground pipelines.
		ev.TTY = int(fds[0].Fd())
	}
	if len(args) > 0 {
		return prog.Exit(script(ev, fds, args, &scriptCfg{
			Cmd: f.CodeInArg, CompileOnly: f.CompileOnly, JSON: f.JSON}))
	}
	if !interactive {
		return prog.Exit(scriptStdin(ev, fds, &scriptCfg{
			CompileOnly: f.CompileOnly, JSON: f.JSON}))
	}

	rc := ""
	if !f.NoRc {
		rc = f.RC
		if rc == "" {
			var err error
			rc, err = RCPath()
			if err != nil {
				fmt.Fprintln(fds[2], "Warning:", err)
			}
		}
	}
	return prog.Exit(interact(ev, fds, &interactCfg{RC: rc}))
}

// Opens the database and attaches it to ev. Failing to open it only
// disables universal variables and history.
func openStore(ev *eval.Evaler, stderr *os.File, path string) func() {
	if path == "" {
		var err error
		path, err = DBPath()
		if err != nil {
			fmt.Fprintln(stderr, "Warning:", err)
			return func() {}
		}
	}
	st, err := store.NewStore(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: cannot open database %s: %v\n", path, err)
		fmt.Fprintln(stderr, "Universal variables and history are unavailable.")
		return func() {}
	}
	logger.Println("opened database", path)
	ev.Store = st
	return func() {
		ev.Store = nil
		if err := st.Close(); err != nil {
			logger.Println("closing database:", err)
		}
	}
}

func incSHLVL() func() {
	oldValue, hadValue := os.LookupEnv(env.SHLVL)
	i, err := strconv.Atoi(oldValue)
	if err != nil {
		i = 0
	}
	os.Setenv(env.SHLVL, strconv.Itoa(i+1))

	if hadValue {
		return func() { os.Setenv(env.SHLVL, oldValue) }
	}
	return func() { os.Unsetenv(env.SHLVL) }
}
