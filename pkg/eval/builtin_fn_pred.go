package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Conditions.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"test": test,
		"[":    bracketTest,
	})
}

// test evaluates a condition and exits with 0 when it holds, 1 when it does
// not and 2 when the condition is malformed. Without arguments it fails.
func test(fm *Frame, args []string) uint8 {
	return runTest(fm, "test", args)
}

// [ is test requiring a trailing ].
func bracketTest(fm *Frame, args []string) uint8 {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return fm.usage("[", "missing ]")
	}
	return runTest(fm, "[", args[:len(args)-1])
}

func runTest(fm *Frame, name string, args []string) uint8 {
	ok, err := evalTest(fm.Cwd(), args)
	if err != nil {
		return fm.usage(name, "%v", err)
	}
	if ok {
		return 0
	}
	return 1
}

func evalTest(cwd string, args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			ok, err := evalTest(cwd, args[1:])
			return !ok, err
		}
		return unaryTest(cwd, args[0], args[1])
	case 3:
		if args[0] == "!" {
			ok, err := evalTest(cwd, args[1:])
			return !ok, err
		}
		return binaryTest(args[0], args[1], args[2])
	default:
		if args[0] == "!" {
			ok, err := evalTest(cwd, args[1:])
			return !ok, err
		}
		return false, fmt.Errorf("too many arguments")
	}
}

func unaryTest(cwd, op, arg string) (bool, error) {
	switch op {
	case "-n":
		return arg != "", nil
	case "-z":
		return arg == "", nil
	}
	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	switch op {
	case "-e", "-f", "-d", "-s":
		info, err := os.Stat(path)
		if err != nil {
			return false, nil
		}
		switch op {
		case "-f":
			return info.Mode().IsRegular(), nil
		case "-d":
			return info.IsDir(), nil
		case "-s":
			return info.Size() > 0, nil
		}
		return true, nil
	case "-x":
		return unix.Access(path, unix.X_OK) == nil, nil
	case "-r":
		return unix.Access(path, unix.R_OK) == nil, nil
	case "-w":
		return unix.Access(path, unix.W_OK) == nil, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func binaryTest(lhs, op, rhs string) (bool, error) {
	switch op {
	case "=":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
	a, err := strconv.ParseInt(lhs, 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad number %q", lhs)
	}
	b, err := strconv.ParseInt(rhs, 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad number %q", rhs)
	}
	switch op {
	case "-eq":
		return a == b, nil
	case "-ne":
		return a != b, nil
	case "-lt":
		return a < b, nil
	case "-le":
		return a <= b, nil
	case "-gt":
		return a > b, nil
	default: // -ge
		return a >= b, nil
	}
}
