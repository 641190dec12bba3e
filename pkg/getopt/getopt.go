// Package getopt parses the options of builtin commands.
//
// Short options may be chained (-gx), long options start with "--" and may
// carry an argument after "=" (--name=value).
package getopt

import (
	"fmt"
	"strings"

	"src.lsh.sh/pkg/errutil"
)

// Config configures the parsing behavior.
type Config uint

const (
	// Stop parsing options after "--".
	StopAfterDoubleDash Config = 1 << iota
	// Stop parsing options before the first non-option argument.
	StopBeforeFirstNonOption

	// Options come first; everything from the first non-option argument on
	// is an argument, even if it starts with "-". Builtins use this so that
	// values such as negative numbers are never mistaken for options.
	Builtin = StopAfterDoubleDash | StopBeforeFirstNonOption
)

// Tests whether a configuration has all specified flags set.
func (c Config) has(bits Config) bool { return c&bits == bits }

// OptionSpec is a command-line option.
type OptionSpec struct {
	// Short option. Set to 0 for long-only.
	Short rune
	// Long option. Set to "" for short-only.
	Long string
	// Whether the option takes an argument.
	Arity Arity
}

// Arity indicates whether an option takes an argument.
type Arity uint

const (
	// The option takes no argument.
	NoArgument Arity = iota
	// The option requires an argument, either directly after a short option
	// (-oarg), after an equal sign (--long=arg) or as the next argument.
	RequiredArgument
)

// Option represents a parsed option.
type Option struct {
	Spec     *OptionSpec
	Unknown  bool
	Long     bool
	Argument string
}

// Name returns the option as written, with its dashes.
func (opt *Option) Name() string {
	if opt.Long {
		return "--" + opt.Spec.Long
	}
	return "-" + string(opt.Spec.Short)
}

// Parse parses an argument list. It returns the parsed options, the non-option
// arguments, and any error.
func Parse(args []string, specs []*OptionSpec, cfg Config) ([]*Option, []string, error) {
	opts, nonOptArgs, opt := parse(args, specs, cfg)
	var err error
	if opt != nil {
		err = fmt.Errorf("missing argument for %s", opt.Name())
	}
	for _, opt := range opts {
		if opt.Unknown {
			err = errutil.Multi(err, fmt.Errorf("unknown option %s", opt.Name()))
		}
	}
	return opts, nonOptArgs, err
}

func parse(args []string, specs []*OptionSpec, cfg Config) ([]*Option, []string, *Option) {
	var (
		opts       []*Option
		nonOptArgs []string
		// Non-nil only when the last argument was an option with required
		// argument, but the argument has not been seen.
		opt *Option
		// Whether option parsing has been stopped.
		stopOpt bool
	)
	for _, arg := range args {
		switch {
		case opt != nil:
			opt.Argument = arg
			opts = append(opts, opt)
			opt = nil
		case stopOpt:
			nonOptArgs = append(nonOptArgs, arg)
		case cfg.has(StopAfterDoubleDash) && arg == "--":
			stopOpt = true
		case strings.HasPrefix(arg, "--") && arg != "--":
			newopt, needArg := parseLong(arg[2:], specs)
			if needArg {
				opt = newopt
			} else {
				opts = append(opts, newopt)
			}
		case strings.HasPrefix(arg, "-") && arg != "--" && arg != "-":
			newopts, needArg := parseShort(arg[1:], specs)
			if needArg {
				opts = append(opts, newopts[:len(newopts)-1]...)
				opt = newopts[len(newopts)-1]
			} else {
				opts = append(opts, newopts...)
			}
		default:
			nonOptArgs = append(nonOptArgs, arg)
			if cfg.has(StopBeforeFirstNonOption) {
				stopOpt = true
			}
		}
	}
	return opts, nonOptArgs, opt
}

// Parses short options, without the leading dash. Returns the parsed options
// and whether an argument is still to be seen.
func parseShort(s string, specs []*OptionSpec) ([]*Option, bool) {
	var opts []*Option
	for i, r := range s {
		spec := findShort(r, specs)
		if spec == nil {
			// The rest of the chain is not interpreted.
			return append(opts, &Option{
				Spec: &OptionSpec{Short: r}, Unknown: true,
				Argument: s[i+len(string(r)):]}), false
		}
		if spec.Arity == NoArgument {
			opts = append(opts, &Option{Spec: spec})
			continue
		}
		parsed := &Option{Spec: spec, Argument: s[i+len(string(r)):]}
		return append(opts, parsed), parsed.Argument == ""
	}
	return opts, false
}

func findShort(r rune, specs []*OptionSpec) *OptionSpec {
	for _, spec := range specs {
		if r == spec.Short {
			return spec
		}
	}
	return nil
}

// Parses a long option, without the leading dashes. Returns the parsed option
// and whether an argument is still to be seen.
func parseLong(s string, specs []*OptionSpec) (*Option, bool) {
	name, arg, hasArg := strings.Cut(s, "=")
	for _, spec := range specs {
		if name == spec.Long {
			return &Option{Spec: spec, Long: true, Argument: arg},
				spec.Arity == RequiredArgument && !hasArg
		}
	}
	return &Option{
		Spec: &OptionSpec{Long: name}, Unknown: true, Long: true,
		Argument: arg}, false
}
