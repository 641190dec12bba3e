package eval

import (
	"fmt"
	"path/filepath"
	"strconv"

	"src.lsh.sh/pkg/getopt"
)

// Miscellaneous builtins.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"source":  source,
		"type":    typeFn,
		"history": history,
	})
}

// source FILE executes a file in the current scope.
func source(fm *Frame, args []string) uint8 {
	if len(args) != 1 {
		return fm.usage("source", "takes exactly one argument")
	}
	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(fm.Cwd(), path)
	}
	status, err := fm.sourceFile(path)
	if err != nil {
		fm.complain(err)
		return 1
	}
	return status
}

// type NAME... reports what each name resolves to.
func typeFn(fm *Frame, args []string) uint8 {
	if len(args) == 0 {
		return fm.usage("type", "command name needed")
	}
	out := fm.Stdout()
	status := uint8(0)
	for _, name := range args {
		kind, value := fm.Resolve(name)
		switch kind {
		case CommandAlias:
			fmt.Fprintf(out, "%s is an alias for %s\n", name, value)
		case CommandBuiltin:
			fmt.Fprintf(out, "%s is a builtin\n", name)
		case CommandFunction:
			fmt.Fprintf(out, "%s is a function\n", name)
		case CommandExternal:
			fmt.Fprintf(out, "%s is %s\n", name, value)
		default:
			status = fm.failf("type", "%s: not found", name)
		}
	}
	return status
}

var historyOptSpecs = []*getopt.OptionSpec{
	{Short: 'd', Long: "delete", Arity: getopt.RequiredArgument},
}

// history [N] lists the command history, or its last N entries. history -d
// SEQ deletes an entry.
func history(fm *Frame, args []string) uint8 {
	if fm.Store == nil {
		return fm.failf("history", "%v", errNoStore)
	}
	opts, args, ok := fm.parseOpts("history", args, historyOptSpecs)
	if !ok {
		return 2
	}
	if len(opts) > 0 {
		if len(args) > 0 {
			return fm.usage("history", "-d takes no other arguments")
		}
		for _, opt := range opts {
			seq, err := strconv.Atoi(opt.Argument)
			if err != nil {
				return fm.usage("history", "bad sequence number %q", opt.Argument)
			}
			if err := fm.Store.DelCmd(seq); err != nil {
				return fm.failf("history", "%d: %v", seq, err)
			}
		}
		return 0
	}
	limit := -1
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fm.usage("history", "bad count %q", args[0])
		}
		limit = n
	default:
		return fm.usage("history", "takes at most one argument")
	}
	cmds, err := fm.Store.CmdsWithSeq(0, -1)
	if err != nil {
		return fm.failf("history", "%v", err)
	}
	if limit >= 0 && limit < len(cmds) {
		cmds = cmds[len(cmds)-limit:]
	}
	for _, cmd := range cmds {
		fmt.Fprintf(fm.Stdout(), "%5d  %s\n", cmd.Seq, cmd.Text)
	}
	return 0
}
