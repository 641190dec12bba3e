package eval

import (
	"fmt"
	"strconv"

	"src.lsh.sh/pkg/getopt"
)

// BuiltinFn is the implementation of a builtin command. The arguments do not
// include the name of the builtin. It writes to the files of the frame and
// returns the exit status.
type BuiltinFn func(fm *Frame, args []string) uint8

var builtinFns = map[string]BuiltinFn{}

func addBuiltinFns(fns map[string]BuiltinFn) {
	for name, fn := range fns {
		builtinFns[name] = fn
	}
}

// Helpers for builtins.

// Reports a usage error of a builtin and returns status 2.
func (fm *Frame) usage(name, format string, args ...any) uint8 {
	fm.complainf("%s: %s", name, fmt.Sprintf(format, args...))
	return 2
}

// Reports a failure of a builtin and returns status 1.
func (fm *Frame) failf(name, format string, args ...any) uint8 {
	fm.complainf("%s: %s", name, fmt.Sprintf(format, args...))
	return 1
}

// Parses the options of a builtin. On a bad option it reports a usage error
// and returns false with status 2.
func (fm *Frame) parseOpts(name string, args []string, specs []*getopt.OptionSpec) ([]*getopt.Option, []string, bool) {
	opts, rest, err := getopt.Parse(args, specs, getopt.Builtin)
	if err != nil {
		fm.usage(name, "%v", err)
		return nil, nil, false
	}
	return opts, rest, true
}

// Parses an exit status argument.
func parseStatus(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("bad status %q", s)
	}
	return uint8(n), nil
}
