package eval

import (
	"fmt"

	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/store/storedefs"
)

// Filesystem.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"cd":   cd,
		"pwd":  pwd,
		"dirs": dirs,
	})
}

// cd changes the working directory: to the home directory without an
// argument, to the previous directory with "-". Directories are recorded in
// the directory history.
func cd(fm *Frame, args []string) uint8 {
	var err error
	switch len(args) {
	case 0:
		err = fm.State.Chdir(fm.Home())
	case 1:
		if args[0] == "-" {
			err = fm.State.ChdirPrev()
			if err == nil {
				fmt.Fprintln(fm.Stdout(), fm.Cwd())
			}
		} else {
			err = fm.State.Chdir(args[0])
		}
	default:
		return fm.usage("cd", "takes at most one argument")
	}
	if err != nil {
		return fm.failf("cd", "%v", err)
	}
	if fm.Store != nil {
		if err := fm.Store.AddDir(fm.Cwd(), 1); err != nil {
			logger.Println("adding dir to history:", err)
		}
	}
	return 0
}

func pwd(fm *Frame, args []string) uint8 {
	if len(args) > 0 {
		return fm.usage("pwd", "takes no arguments")
	}
	fmt.Fprintln(fm.Stdout(), fm.Cwd())
	return 0
}

// dirs lists the directory history, most frequently visited first.
func dirs(fm *Frame, args []string) uint8 {
	if fm.Store == nil {
		return fm.failf("dirs", "%v", errNoStore)
	}
	blacklist := storedefs.NoBlacklist
	if len(args) == 0 {
		blacklist = map[string]struct{}{fm.Cwd(): {}}
	} else if len(args) != 1 || args[0] != "-a" {
		return fm.usage("dirs", "only -a is supported")
	}
	ds, err := fm.Store.Dirs(blacklist)
	if err != nil {
		return fm.failf("dirs", "%v", err)
	}
	for _, d := range ds {
		fmt.Fprintln(fm.Stdout(), fsutil.TildeAbbr(d.Path, fm.Home()))
	}
	return 0
}
