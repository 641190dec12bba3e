// Package eval executes parsed lsh code: it resolves pipelines just in time,
// runs them as processes or in-process builtins, and threads control flow
// through blocks and function calls.
package eval

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"src.lsh.sh/pkg/jobs"
	"src.lsh.sh/pkg/logutil"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/state"
	"src.lsh.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[eval] ")

// Evaler executes code and keeps everything that persists between pieces of
// code: the shell state, the job table and the builtins. An Evaler is owned
// by one goroutine.
type Evaler struct {
	State *state.State
	Jobs  *jobs.Table
	// Backs universal variables, command history and directory history. May
	// be nil.
	Store storedefs.Store
	// File descriptor of the controlling terminal, or -1 when there is none.
	// Foreground pipelines are given the terminal while the shell owns it.
	TTY int
	// Path of the shell binary, re-executed to run builtins and functions in
	// pipelines.
	SelfPath string

	ports    [3]*os.File
	builtins map[string]BuiltinFn
	// Set in a re-executed child; such a process never creates process groups
	// for foreground pipelines.
	forked bool
	// Set by the exit builtin.
	exitRequested bool
	exitStatus    uint8

	cacheMu sync.Mutex
	bodies  map[bodyKey]*parse.Chunk
}

type bodyKey struct {
	name, code string
	from, to   int
}

// NewEvaler creates a new Evaler with a fresh State imported from the
// environment of the process.
func NewEvaler() *Evaler {
	return NewEvalerWithState(state.New(os.Environ()))
}

// NewEvalerWithState creates a new Evaler using the given State.
func NewEvalerWithState(st *state.State) *Evaler {
	self, err := os.Executable()
	if err != nil {
		logger.Println("cannot find own executable:", err)
	}
	builtins := make(map[string]BuiltinFn, len(builtinFns))
	for name, fn := range builtinFns {
		builtins[name] = fn
	}
	return &Evaler{
		State:    st,
		Jobs:     jobs.NewTable(),
		TTY:      -1,
		SelfPath: self,
		ports:    [3]*os.File{os.Stdin, os.Stdout, os.Stderr},
		builtins: builtins,
		bodies:   map[bodyKey]*parse.Chunk{},
	}
}

// SetPorts sets the files used as stdin, stdout and stderr of the code that
// is executed.
func (ev *Evaler) SetPorts(files [3]*os.File) {
	ev.ports = files
}

// Ports returns the files used as stdin, stdout and stderr.
func (ev *Evaler) Ports() [3]*os.File {
	return ev.ports
}

// AddBuiltin adds or replaces a builtin. Builtins added this way exist only
// in this process: they run in process, and fail when they are part of a
// pipeline that needs a re-executed child.
func (ev *Evaler) AddBuiltin(name string, fn BuiltinFn) {
	ev.builtins[name] = fn
}

// Exited returns whether the exit builtin has been called, and the status it
// was called with.
func (ev *Evaler) Exited() (uint8, bool) {
	return ev.exitStatus, ev.exitRequested
}

// Execute parses and executes code, and returns the status of the last
// statement executed. A parse error is returned before anything runs; other
// errors are reported on stderr and only affect the status.
func (ev *Evaler) Execute(src parse.Source) (uint8, error) {
	return ev.execute(src, ev.ports)
}

func (ev *Evaler) execute(src parse.Source, ports [3]*os.File) (uint8, error) {
	chunk, err := parse.Parse(src)
	if err != nil {
		ev.State.SetStatus(1)
		return 1, err
	}
	fm := &Frame{Evaler: ev, src: src, ports: ports}
	if _, err := fm.execChunk(chunk); err != nil {
		return 1, err
	}
	return ev.State.Status(), nil
}

// ExecuteFile executes the script in the named file.
func (ev *Evaler) ExecuteFile(path string) (uint8, error) {
	src, err := readSource(path)
	if err != nil {
		return 1, err
	}
	return ev.Execute(src)
}

func readSource(path string) (parse.Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return parse.Source{}, err
	}
	code, err := os.ReadFile(abs)
	if err != nil {
		return parse.Source{}, err
	}
	if !utf8.Valid(code) {
		return parse.Source{}, fmt.Errorf("%s: source is not UTF-8", abs)
	}
	return parse.Source{Name: abs, Code: string(code), IsFile: true}, nil
}

// ExecuteAndCapture executes code in this process with its standard output
// captured, and returns the output. Mutations to the state are visible
// afterwards.
func (ev *Evaler) ExecuteAndCapture(src parse.Source) ([]byte, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&buf, r)
		r.Close()
		done <- err
	}()
	_, err = ev.execute(src, [3]*os.File{ev.ports[0], w, ev.ports[2]})
	w.Close()
	if copyErr := <-done; err == nil {
		err = copyErr
	}
	return buf.Bytes(), err
}

// Returns the parsed body of a block, parsing it only the first time.
func (ev *Evaler) parseBody(src parse.Source, body parse.Body) (*parse.Chunk, error) {
	key := bodyKey{src.Name, src.Code, body.From, body.To}
	ev.cacheMu.Lock()
	defer ev.cacheMu.Unlock()
	if chunk, ok := ev.bodies[key]; ok {
		return chunk, nil
	}
	chunk, err := parse.ParseBody(src, body)
	if err != nil {
		return nil, err
	}
	ev.bodies[key] = chunk
	return chunk, nil
}

// Returns the source and parsed body of a function.
func (ev *Evaler) parseFunction(fn *state.Function) (parse.Source, *parse.Chunk, error) {
	src := parse.Source{Name: fn.SourceName, Code: fn.Body}
	chunk, err := ev.parseBody(src, parse.Body{Code: fn.Body, Ranging: wholeRange(fn.Body)})
	return src, chunk, err
}
