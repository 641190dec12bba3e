// Package state keeps the state shared by all parts of the shell: variables
// in nested scopes, exports, aliases, functions, the working directory and the
// last exit status.
//
// A State is not safe for concurrent use; it is owned by the goroutine that
// executes code.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
)

// ScopeKind is the kind of a variable scope.
type ScopeKind int

// Possible values of ScopeKind.
const (
	GlobalScope ScopeKind = iota
	// A function scope sees the global scope, but not the scope of its caller.
	FunctionScope
	// A block scope sees the scope it is created in.
	BlockScope
)

// ScopeID identifies a scope in the arena of a State.
type ScopeID int

// Global is the ID of the global scope.
const Global ScopeID = 0

type scope struct {
	Kind   ScopeKind
	Parent ScopeID
	Vars   map[string][]string
}

// Function is a user-defined function. The body is kept as source code and
// parsed when the function is called.
type Function struct {
	Name       string   `yaml:"name"`
	Params     []string `yaml:"params"`
	Body       string   `yaml:"body"`
	SourceName string   `yaml:"source-name"`
}

// State is the shared shell state.
type State struct {
	// Whether the shell is interactive.
	Interactive bool

	// Scopes are allocated in LIFO order, so the arena doubles as the stack
	// and the last element is always the current scope.
	scopes    []*scope
	exported  map[string]bool
	aliases   map[string]string
	functions map[string]*Function
	cwd       string
	prevDir   string
	home      string
	status    uint8
}

// ErrNoPrevDir is returned by Chdir when asked to go to the previous
// directory and there is none.
var ErrNoPrevDir = errors.New("no previous directory")

// New creates a new State, importing the given environment (in the format of
// os.Environ) as exported global variables.
func New(environ []string) *State {
	s := &State{
		scopes:    []*scope{{Kind: GlobalScope, Parent: Global, Vars: map[string][]string{}}},
		exported:  map[string]bool{},
		aliases:   map[string]string{},
		functions: map[string]*Function{},
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		s.SetGlobal(name, splitEnvValue(name, value))
		s.exported[name] = true
	}
	if wd, err := os.Getwd(); err == nil {
		s.cwd = wd
	} else if pwd, ok := s.Get(env.PWD); ok && len(pwd) == 1 {
		s.cwd = pwd[0]
	} else {
		s.cwd = "/"
	}
	s.SetGlobal(env.PWD, []string{s.cwd})
	s.exported[env.PWD] = true
	if home, ok := s.Get(env.HOME); ok && len(home) == 1 {
		s.home = home[0]
	} else if home, err := fsutil.GetHome(""); err == nil {
		s.home = home
	}
	s.SetStatus(0)
	return s
}

// Variables whose names end in PATH hold lists separated by ":" in the
// environment.
func isPathLike(name string) bool {
	return strings.HasSuffix(name, "PATH")
}

func splitEnvValue(name, value string) []string {
	if isPathLike(name) {
		if value == "" {
			return []string{}
		}
		return strings.Split(value, ":")
	}
	return []string{value}
}

func joinEnvValue(name string, values []string) string {
	if isPathLike(name) {
		return strings.Join(values, ":")
	}
	return strings.Join(values, " ")
}

func (s *State) current() *scope { return s.scopes[len(s.scopes)-1] }

// Finds the scope defining name, walking parent links from the current
// scope.
func (s *State) lookup(name string) *scope {
	id := ScopeID(len(s.scopes) - 1)
	for {
		sc := s.scopes[id]
		if _, ok := sc.Vars[name]; ok {
			return sc
		}
		if id == Global {
			return nil
		}
		id = sc.Parent
	}
}

// Get returns the value of a variable visible from the current scope.
func (s *State) Get(name string) ([]string, bool) {
	if sc := s.lookup(name); sc != nil {
		return sc.Vars[name], true
	}
	return nil, false
}

// Set sets a variable. An existing variable is updated in the scope that
// defines it; a new one is created in the current scope.
func (s *State) Set(name string, values []string) {
	sc := s.lookup(name)
	if sc == nil {
		sc = s.current()
	}
	sc.Vars[name] = copyList(values)
}

// SetLocal sets a variable in the current scope, shadowing any outer one.
func (s *State) SetLocal(name string, values []string) {
	s.current().Vars[name] = copyList(values)
}

// SetGlobal sets a variable in the global scope.
func (s *State) SetGlobal(name string, values []string) {
	s.scopes[Global].Vars[name] = copyList(values)
}

func copyList(values []string) []string {
	return append([]string{}, values...)
}

// Erase removes the innermost visible definition of a variable. It returns
// whether there was one.
func (s *State) Erase(name string) bool {
	sc := s.lookup(name)
	if sc == nil {
		return false
	}
	delete(sc.Vars, name)
	return true
}

// Names returns the sorted names of all variables visible from the current
// scope.
func (s *State) Names() []string {
	seen := map[string]bool{}
	id := ScopeID(len(s.scopes) - 1)
	for {
		sc := s.scopes[id]
		for name := range sc.Vars {
			seen[name] = true
		}
		if id == Global {
			break
		}
		id = sc.Parent
	}
	return sortedKeys(seen)
}

// PushScope creates a new scope and makes it current.
func (s *State) PushScope(kind ScopeKind) ScopeID {
	parent := Global
	if kind == BlockScope {
		parent = ScopeID(len(s.scopes) - 1)
	}
	s.scopes = append(s.scopes, &scope{Kind: kind, Parent: parent, Vars: map[string][]string{}})
	return ScopeID(len(s.scopes) - 1)
}

// PopScope discards the current scope. The global scope is never popped.
func (s *State) PopScope() {
	if len(s.scopes) > 1 {
		s.scopes[len(s.scopes)-1] = nil
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// ResetScopes discards all scopes except the global one.
func (s *State) ResetScopes() {
	for len(s.scopes) > 1 {
		s.PopScope()
	}
}

// Depth returns the number of scopes on top of the global one.
func (s *State) Depth() int { return len(s.scopes) - 1 }

// Export marks a variable as exported to the environment of external
// commands.
func (s *State) Export(name string) { s.exported[name] = true }

// Unexport removes the exported mark of a variable.
func (s *State) Unexport(name string) { delete(s.exported, name) }

// IsExported returns whether a variable is exported.
func (s *State) IsExported(name string) bool { return s.exported[name] }

// Environ builds the environment for an external command: all exported
// variables visible from the current scope, followed by the given extra
// assignments in "name=value" form. Later entries win.
func (s *State) Environ(extra []string) []string {
	var names []string
	for name := range s.exported {
		names = append(names, name)
	}
	sort.Strings(names)
	index := map[string]int{}
	var environ []string
	add := func(name, kv string) {
		if i, ok := index[name]; ok {
			environ[i] = kv
			return
		}
		index[name] = len(environ)
		environ = append(environ, kv)
	}
	for _, name := range names {
		if values, ok := s.Get(name); ok {
			add(name, name+"="+joinEnvValue(name, values))
		}
	}
	for _, kv := range extra {
		name, _, _ := strings.Cut(kv, "=")
		add(name, kv)
	}
	return environ
}

// EnvString returns how a variable is represented in the environment.
func EnvString(name string, values []string) string {
	return name + "=" + joinEnvValue(name, values)
}

// SetAlias defines an alias.
func (s *State) SetAlias(name, value string) { s.aliases[name] = value }

// Alias returns the value of an alias.
func (s *State) Alias(name string) (string, bool) {
	v, ok := s.aliases[name]
	return v, ok
}

// RemoveAlias removes an alias and returns whether it existed.
func (s *State) RemoveAlias(name string) bool {
	_, ok := s.aliases[name]
	delete(s.aliases, name)
	return ok
}

// AliasNames returns the sorted names of all aliases.
func (s *State) AliasNames() []string {
	return sortedKeys(s.aliases)
}

// SetFunction defines a function, replacing any previous one of the same
// name.
func (s *State) SetFunction(fn *Function) { s.functions[fn.Name] = fn }

// Function returns a function by name.
func (s *State) Function(name string) (*Function, bool) {
	fn, ok := s.functions[name]
	return fn, ok
}

// RemoveFunction removes a function and returns whether it existed.
func (s *State) RemoveFunction(name string) bool {
	_, ok := s.functions[name]
	delete(s.functions, name)
	return ok
}

// FunctionNames returns the sorted names of all functions.
func (s *State) FunctionNames() []string {
	return sortedKeys(s.functions)
}

// Cwd returns the working directory.
func (s *State) Cwd() string { return s.cwd }

// PrevDir returns the previous working directory, or "" if there is none.
func (s *State) PrevDir() string { return s.prevDir }

// Home returns the home directory of the current user.
func (s *State) Home() string { return s.home }

// Chdir changes the working directory of the process and updates $PWD and
// $OLDPWD. A relative dir is resolved against the current working directory.
func (s *State) Chdir(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.cwd, dir)
	}
	dir = filepath.Clean(dir)
	if err := os.Chdir(dir); err != nil {
		return err
	}
	s.prevDir, s.cwd = s.cwd, dir
	s.SetGlobal(env.PWD, []string{s.cwd})
	s.SetGlobal(env.OLDPWD, []string{s.prevDir})
	s.exported[env.PWD] = true
	s.exported[env.OLDPWD] = true
	return nil
}

// ChdirPrev changes to the previous working directory.
func (s *State) ChdirPrev() error {
	if s.prevDir == "" {
		return ErrNoPrevDir
	}
	return s.Chdir(s.prevDir)
}

// Status returns the exit status of the last command.
func (s *State) Status() uint8 { return s.status }

// SetStatus sets the exit status of the last command, also stored in the
// global variable $status.
func (s *State) SetStatus(st uint8) {
	s.status = st
	s.SetGlobal("status", []string{strconv.Itoa(int(st))})
}

// String returns a short description of the state, used in logs.
func (s *State) String() string {
	return fmt.Sprintf("state{cwd=%s depth=%d status=%d}", s.cwd, s.Depth(), s.status)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
