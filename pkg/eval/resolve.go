package eval

import (
	"errors"
	"fmt"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/expand"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/state"
)

// CommandKind is what the head of a command resolves to.
type CommandKind int

// Possible values of CommandKind.
const (
	// A command with no words; it only assigns variables.
	CommandNone CommandKind = iota
	CommandAlias
	CommandBuiltin
	CommandFunction
	CommandExternal
	CommandNotFound
	// An external command that exists but cannot be executed.
	CommandNotExecutable
)

var commandKindNames = [...]string{
	"none", "alias", "builtin", "function", "external", "not found", "not executable",
}

func (k CommandKind) String() string {
	if 0 <= k && int(k) < len(commandKindNames) {
		return commandKindNames[k]
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// EnvAssignment is a "NAME=value" prefix of an expanded command.
type EnvAssignment struct {
	Name   string
	Values []string
}

// RedirKind is the kind of a resolved redirection.
type RedirKind int

// Possible values of RedirKind.
const (
	RedirRead RedirKind = iota
	RedirWrite
	RedirAppend
	RedirDup
)

// Redir is a resolved redirection.
type Redir struct {
	FromFD int
	Kind   RedirKind
	// Set for all kinds except RedirDup.
	Path string
	// Set for RedirDup.
	TargetFD int
}

// ExpandedCommand is a command whose words, assignments and redirection
// targets have all been expanded, and whose head has been resolved.
type ExpandedCommand struct {
	Argv   []string
	Env    []EnvAssignment
	Redirs []Redir
	Kind   CommandKind
	// Path of an external command.
	Path string

	builtin BuiltinFn
	fn      *state.Function
}

// Pipeline is a resolved pipeline.
type Pipeline []*ExpandedCommand

// Resolves a pipeline against the current state. It must be called right
// before the pipeline runs.
func (fm *Frame) resolvePipeline(p *parse.Pipeline) (Pipeline, error) {
	resolved := make(Pipeline, len(p.Commands))
	for i, cmd := range p.Commands {
		ec, err := fm.resolveCommand(cmd)
		if err != nil {
			return nil, err
		}
		resolved[i] = ec
	}
	return resolved, nil
}

func (fm *Frame) resolveCommand(cmd *parse.Command) (*ExpandedCommand, error) {
	ec := &ExpandedCommand{}
	for _, a := range cmd.Assignments {
		values, err := expand.Expand(a.Value, fm)
		if err != nil {
			return nil, fm.errorp(a.Value, expansionErrorType, err)
		}
		ec.Env = append(ec.Env, EnvAssignment{a.Name, values})
	}
	for _, w := range cmd.Words {
		words, err := expand.Expand(w, fm)
		if err != nil {
			return nil, fm.errorp(w, expansionErrorType, err)
		}
		ec.Argv = append(ec.Argv, words...)
	}
	for _, r := range cmd.Redirs {
		redir, err := fm.resolveRedir(r)
		if err != nil {
			return nil, err
		}
		ec.Redirs = append(ec.Redirs, redir)
	}

	argv, err := fm.substituteAlias(ec.Argv)
	if err != nil {
		return nil, fm.errorp(cmd, expansionErrorType, err)
	}
	ec.Argv = argv
	if len(ec.Argv) == 0 {
		ec.Kind = CommandNone
		return ec, nil
	}
	name := ec.Argv[0]
	if fn, ok := fm.builtins[name]; ok {
		ec.Kind, ec.builtin = CommandBuiltin, fn
	} else if fn, ok := fm.State.Function(name); ok {
		ec.Kind, ec.fn = CommandFunction, fn
	} else {
		ec.Kind, ec.Path = fm.searchExternal(name)
	}
	return ec, nil
}

func (fm *Frame) resolveRedir(r *parse.Redir) (Redir, error) {
	if r.Mode == parse.Dup {
		return Redir{FromFD: r.FD, Kind: RedirDup, TargetFD: r.DupFD}, nil
	}
	words, err := expand.Expand(r.Target, fm)
	if err != nil {
		return Redir{}, fm.errorp(r.Target, expansionErrorType, err)
	}
	if len(words) != 1 {
		return Redir{}, fm.errorp(r.Target, expansionErrorType,
			fmt.Errorf("redirection target must be one word, got %d", len(words)))
	}
	kind := RedirRead
	switch r.Mode {
	case parse.Write:
		kind = RedirWrite
	case parse.Append:
		kind = RedirAppend
	}
	return Redir{FromFD: r.FD, Kind: kind, Path: words[0]}, nil
}

// Aliases are substituted until the head is no longer an alias, but an alias
// is never substituted into itself.
func (fm *Frame) substituteAlias(argv []string) ([]string, error) {
	seen := map[string]bool{}
	for len(argv) > 0 && !seen[argv[0]] {
		value, ok := fm.State.Alias(argv[0])
		if !ok {
			break
		}
		seen[argv[0]] = true
		words, err := fm.expandAlias(argv[0], value)
		if err != nil {
			return nil, err
		}
		argv = append(words, argv[1:]...)
	}
	return argv, nil
}

var errBadAlias = errors.New("alias must be a simple command")

func (fm *Frame) expandAlias(name, value string) ([]string, error) {
	chunk, err := parse.Parse(parse.Source{Name: "[alias " + name + "]", Code: value})
	if err != nil {
		return nil, err
	}
	if len(chunk.Statements) != 1 {
		return nil, errBadAlias
	}
	stmt, ok := chunk.Statements[0].(*parse.CommandStmt)
	if !ok || len(stmt.Items) != 1 || stmt.Background || stmt.Capture != nil ||
		len(stmt.Items[0].Pipeline.Commands) != 1 {
		return nil, errBadAlias
	}
	cmd := stmt.Items[0].Pipeline.Commands[0]
	if len(cmd.Assignments) > 0 || len(cmd.Redirs) > 0 {
		return nil, errBadAlias
	}
	return expand.ExpandAll(cmd.Words, fm)
}

func (fm *Frame) searchExternal(name string) (CommandKind, string) {
	dirs, _ := fm.Get(env.PATH)
	path, err := fsutil.Search(name, fm.Cwd(), dirs)
	switch {
	case err == nil:
		return CommandExternal, path
	case errors.Is(err, fsutil.ErrNotExecutable):
		return CommandNotExecutable, ""
	default:
		return CommandNotFound, ""
	}
}

// Resolve reports what a command name resolves to. The returned string is
// the value of an alias or the path of an external command.
func (fm *Frame) Resolve(name string) (CommandKind, string) {
	if value, ok := fm.State.Alias(name); ok {
		return CommandAlias, value
	}
	if _, ok := fm.builtins[name]; ok {
		return CommandBuiltin, ""
	}
	if _, ok := fm.State.Function(name); ok {
		return CommandFunction, ""
	}
	return fm.searchExternal(name)
}

// Returns the per-command assignments in the format of os.Environ.
func (ec *ExpandedCommand) environ() []string {
	kvs := make([]string, len(ec.Env))
	for i, a := range ec.Env {
		kvs[i] = state.EnvString(a.Name, a.Values)
	}
	return kvs
}
