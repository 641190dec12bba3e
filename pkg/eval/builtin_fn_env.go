package eval

import (
	"errors"
	"fmt"
	"strings"

	"src.lsh.sh/pkg/getopt"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/store/storedefs"
)

// Variables, aliases and functions.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"set":       set,
		"alias":     alias,
		"unalias":   unalias,
		"functions": functions,
	})
}

type setFlags struct {
	local, global, export, unexport, erase, universal, query bool
}

var errNoStore = errors.New("no store available")

var setOptSpecs = []*getopt.OptionSpec{
	{Short: 'l', Long: "local"},
	{Short: 'g', Long: "global"},
	{Short: 'x', Long: "export"},
	{Short: 'u', Long: "unexport"},
	{Short: 'e', Long: "erase"},
	{Short: 'U', Long: "universal"},
	{Short: 'q', Long: "query"},
}

// set NAME VALUE... assigns a variable. Flags:
//
//	-l, --local      in the current scope
//	-g, --global     in the global scope
//	-x, --export     and export it
//	-u, --unexport   and unexport it
//	-e, --erase      erase it instead
//	-U, --universal  as a universal variable, kept in the store
//	-q, --query      only test whether it exists
//
// Without a name, set lists variables.
func set(fm *Frame, args []string) uint8 {
	opts, args, ok := fm.parseOpts("set", args, setOptSpecs)
	if !ok {
		return 2
	}
	var f setFlags
	for _, opt := range opts {
		switch opt.Spec.Short {
		case 'l':
			f.local = true
		case 'g':
			f.global = true
		case 'x':
			f.export = true
		case 'u':
			f.unexport = true
		case 'e':
			f.erase = true
		case 'U':
			f.universal = true
		case 'q':
			f.query = true
		}
	}
	if f.local && f.global {
		return fm.usage("set", "-l and -g cannot be used together")
	}

	if len(args) == 0 {
		if f.erase || f.query {
			return fm.usage("set", "variable name needed")
		}
		return listVars(fm, f)
	}
	name, values := args[0], args[1:]
	if !parse.IsIdentifier(name) {
		return fm.usage("set", "bad variable name %q", name)
	}

	switch {
	case f.query:
		if _, ok := fm.Get(name); ok {
			return 0
		}
		return 1
	case f.universal:
		return setUniversal(fm, name, values, f.erase)
	case f.erase:
		if !fm.State.Erase(name) {
			return fm.failf("set", "no variable %s", name)
		}
		fm.State.Unexport(name)
		return 0
	}

	_, exists := fm.State.Get(name)
	if len(values) > 0 || !exists || !(f.export || f.unexport) {
		switch {
		case f.local:
			fm.State.SetLocal(name, values)
		case f.global:
			fm.State.SetGlobal(name, values)
		default:
			fm.State.Set(name, values)
		}
	}
	if f.export {
		fm.State.Export(name)
	} else if f.unexport {
		fm.State.Unexport(name)
	}
	return 0
}

func setUniversal(fm *Frame, name string, values []string, erase bool) uint8 {
	if fm.Store == nil {
		return fm.failf("set", "%v", errNoStore)
	}
	var err error
	if erase {
		err = fm.Store.DelUniversalVar(name)
		if errors.Is(err, storedefs.ErrNoVar) {
			return fm.failf("set", "no universal variable %s", name)
		}
	} else {
		err = fm.Store.SetUniversalVar(name, values)
	}
	if err != nil {
		return fm.failf("set", "%v", err)
	}
	return 0
}

func listVars(fm *Frame, f setFlags) uint8 {
	out := fm.Stdout()
	if f.universal {
		if fm.Store == nil {
			return fm.failf("set", "%v", errNoStore)
		}
		names, err := fm.Store.UniversalVarNames()
		if err != nil {
			return fm.failf("set", "%v", err)
		}
		for _, name := range names {
			values, err := fm.Store.UniversalVar(name)
			if err == nil {
				fmt.Fprintln(out, formatVar(name, values))
			}
		}
		return 0
	}
	for _, name := range fm.State.Names() {
		if f.export && !fm.State.IsExported(name) {
			continue
		}
		values, _ := fm.State.Get(name)
		fmt.Fprintln(out, formatVar(name, values))
	}
	return 0
}

func formatVar(name string, values []string) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, v := range values {
		sb.WriteString(" ")
		sb.WriteString(parse.Quote(v))
	}
	return sb.String()
}

// alias NAME VALUE... defines an alias. "alias NAME=VALUE" is also accepted.
// Without arguments, all aliases are listed; with just a name, that alias is
// shown.
func alias(fm *Frame, args []string) uint8 {
	out := fm.Stdout()
	if len(args) == 0 {
		for _, name := range fm.State.AliasNames() {
			value, _ := fm.State.Alias(name)
			fmt.Fprintf(out, "alias %s %s\n", name, parse.Quote(value))
		}
		return 0
	}
	name := args[0]
	values := args[1:]
	if before, after, ok := strings.Cut(name, "="); ok && len(values) == 0 {
		name, values = before, []string{after}
	}
	if name == "" || strings.ContainsAny(name, " \t\n/") {
		return fm.usage("alias", "bad alias name %q", name)
	}
	if len(values) == 0 {
		value, ok := fm.State.Alias(name)
		if !ok {
			return fm.failf("alias", "no alias %s", name)
		}
		fmt.Fprintf(out, "alias %s %s\n", name, parse.Quote(value))
		return 0
	}
	fm.State.SetAlias(name, strings.Join(values, " "))
	return 0
}

func unalias(fm *Frame, args []string) uint8 {
	if len(args) == 0 {
		return fm.usage("unalias", "alias name needed")
	}
	status := uint8(0)
	for _, name := range args {
		if !fm.State.RemoveAlias(name) {
			status = fm.failf("unalias", "no alias %s", name)
		}
	}
	return status
}

// functions lists function names, shows the definitions of the named
// functions, or with -e erases them.
func functions(fm *Frame, args []string) uint8 {
	out := fm.Stdout()
	if len(args) == 0 {
		for _, name := range fm.State.FunctionNames() {
			fmt.Fprintln(out, name)
		}
		return 0
	}
	erase := false
	if args[0] == "-e" {
		erase = true
		args = args[1:]
	}
	status := uint8(0)
	for _, name := range args {
		fn, ok := fm.State.Function(name)
		switch {
		case !ok:
			status = fm.failf("functions", "no function %s", name)
		case erase:
			fm.State.RemoveFunction(name)
		default:
			header := append([]string{"fn", fn.Name}, fn.Params...)
			body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fn.Body), ";"))
			fmt.Fprintf(out, "%s\n%s\nend\n", strings.Join(header, " "), body)
		}
	}
	return status
}
