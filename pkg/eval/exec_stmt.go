package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/expand"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/state"
)

// FlowKind is the kind of a control flow signal.
type FlowKind int

// Possible values of FlowKind.
const (
	FlowNone FlowKind = iota
	FlowBreak
	FlowContinue
	FlowReturn
	// The exit builtin was called.
	FlowExit
)

var flowNames = [...]string{"none", "break", "continue", "return", "exit"}

func (k FlowKind) String() string {
	if 0 <= k && int(k) < len(flowNames) {
		return flowNames[k]
	}
	return fmt.Sprintf("FlowKind(%d)", int(k))
}

// Flow is returned by the execution of a statement. Break and continue are
// consumed by the nearest loop, return by the nearest function call; other
// statements pass them outward unchanged.
type Flow struct {
	Kind   FlowKind
	Status uint8
}

var flowNone = Flow{}

// Executes statements in order until one returns a flow other than FlowNone.
// The returned error is a parse error from a block body and aborts the
// execution.
func (fm *Frame) execChunk(ch *parse.Chunk) (Flow, error) {
	for _, stmt := range ch.Statements {
		flow, err := fm.execStmt(stmt)
		if err != nil || flow.Kind != FlowNone {
			return flow, err
		}
	}
	return flowNone, nil
}

func (fm *Frame) execStmt(stmt parse.Statement) (Flow, error) {
	switch stmt := stmt.(type) {
	case *parse.CommandStmt:
		return fm.execCommandStmt(stmt), nil
	case *parse.IfStmt:
		return fm.execIf(stmt)
	case *parse.ForStmt:
		return fm.execFor(stmt)
	case *parse.WhileStmt:
		return fm.execWhile(stmt)
	case *parse.FnStmt:
		fm.State.SetFunction(&state.Function{
			Name: stmt.Name, Params: stmt.Params,
			Body: stmt.Body.Code, SourceName: fm.src.Name})
		fm.State.SetStatus(0)
		return flowNone, nil
	case *parse.BreakStmt:
		return fm.loopFlow(stmt, FlowBreak), nil
	case *parse.ContinueStmt:
		return fm.loopFlow(stmt, FlowContinue), nil
	case *parse.ReturnStmt:
		return fm.execReturn(stmt), nil
	}
	panic(fmt.Sprintf("unknown statement type %T", stmt))
}

// Sets the status to 1 after a runtime error.
func (fm *Frame) fail(err error) Flow {
	fm.complain(err)
	fm.State.SetStatus(1)
	return flowNone
}

func (fm *Frame) loopFlow(stmt parse.Node, kind FlowKind) Flow {
	if fm.loops == 0 {
		return fm.fail(fm.errorp(stmt, runtimeErrorType,
			fmt.Errorf("%s outside of a loop", kind)))
	}
	return Flow{Kind: kind, Status: fm.State.Status()}
}

const runtimeErrorType = "runtime error"

func (fm *Frame) execReturn(stmt *parse.ReturnStmt) Flow {
	if !fm.canReturn {
		return fm.fail(fm.errorp(stmt, runtimeErrorType,
			errors.New("return outside of a function")))
	}
	status := fm.State.Status()
	if stmt.Status != nil {
		words, err := expand.Expand(stmt.Status, fm)
		if err != nil {
			return fm.fail(fm.errorp(stmt.Status, expansionErrorType, err))
		}
		if len(words) != 1 {
			return fm.fail(fm.errorp(stmt.Status, runtimeErrorType,
				fmt.Errorf("return needs one status, got %d words", len(words))))
		}
		n, err := strconv.ParseUint(words[0], 10, 8)
		if err != nil {
			return fm.fail(fm.errorp(stmt.Status, runtimeErrorType,
				fmt.Errorf("bad status %q", words[0])))
		}
		status = uint8(n)
	}
	fm.State.SetStatus(status)
	return Flow{Kind: FlowReturn, Status: status}
}

// Executes a command statement. Chain items are resolved one at a time, right
// before they run, so each one sees the effects of the ones before it.
func (fm *Frame) execCommandStmt(stmt *parse.CommandStmt) Flow {
	if len(stmt.Items) > 1 && (stmt.Background || stmt.Capture != nil) {
		return fm.execForkedChain(stmt)
	}
	opts := runOpts{
		background: stmt.Background,
		capture:    stmt.Capture != nil,
	}
	status := fm.State.Status()
	for i, item := range stmt.Items {
		if i > 0 && (item.Op == parse.OpAnd && status != 0 || item.Op == parse.OpOr && status == 0) {
			continue
		}
		p, err := fm.resolvePipeline(item.Pipeline)
		if err != nil {
			return fm.fail(err)
		}
		opts.text = item.Pipeline.SourceText()
		var out []byte
		status, out = fm.runPipeline(p, opts)
		fm.State.SetStatus(status)
		if fm.exitRequested {
			return Flow{Kind: FlowExit, Status: fm.exitStatus}
		}
		if stmt.Capture != nil {
			fm.setCaptured(stmt.Capture, out)
		}
	}
	return flowNone
}

// Runs a chain that is backgrounded or captured as a whole in a re-executed
// child.
func (fm *Frame) execForkedChain(stmt *parse.CommandStmt) Flow {
	first := stmt.Items[0].Pipeline
	last := stmt.Items[len(stmt.Items)-1].Pipeline
	code := fm.src.Code[first.From:last.To]
	args := []string{fm.src.Name, code}
	if stmt.Capture != nil {
		out, status, err := fm.captureForked(forkCode, args)
		if err != nil {
			return fm.fail(err)
		}
		fm.setCaptured(stmt.Capture, out)
		fm.State.SetStatus(status)
		return flowNone
	}
	status := fm.runForkedBackground(args, code)
	fm.State.SetStatus(status)
	return flowNone
}

func (fm *Frame) setCaptured(c *parse.Capture, out []byte) {
	switch c.Mode {
	case parse.CaptureLines:
		fm.State.Set(c.Var, expand.SplitLines(string(out)))
	default:
		fm.State.Set(c.Var, []string{strings.TrimRight(string(out), "\n")})
	}
}

func (fm *Frame) execIf(stmt *parse.IfStmt) (Flow, error) {
	for _, branch := range stmt.Branches {
		if branch.Cond != nil {
			if flow := fm.execCommandStmt(branch.Cond); flow.Kind != FlowNone {
				return flow, nil
			}
			if fm.State.Status() != 0 {
				continue
			}
		}
		chunk, err := fm.parseBody(fm.src, branch.Body)
		if err != nil {
			return flowNone, err
		}
		return fm.execChunk(chunk)
	}
	fm.State.SetStatus(0)
	return flowNone, nil
}

func (fm *Frame) execFor(stmt *parse.ForStmt) (Flow, error) {
	values, err := expand.ExpandAll(stmt.Words, fm)
	if err != nil {
		return fm.fail(fm.errorp(stmt, expansionErrorType, err)), nil
	}
	chunk, err := fm.parseBody(fm.src, stmt.Body)
	if err != nil {
		return flowNone, err
	}
	fm.State.SetStatus(0)
	for _, value := range values {
		flow, err := fm.iterate(chunk, func() {
			fm.State.SetLocal(stmt.Var, []string{value})
		})
		if err != nil || flow.Kind == FlowBreak {
			return flowNone, err
		} else if flow.Kind != FlowNone && flow.Kind != FlowContinue {
			return flow, nil
		}
	}
	return flowNone, nil
}

func (fm *Frame) execWhile(stmt *parse.WhileStmt) (Flow, error) {
	chunk, err := fm.parseBody(fm.src, stmt.Body)
	if err != nil {
		return flowNone, err
	}
	bodyStatus := uint8(0)
	for {
		if flow := fm.execCommandStmt(stmt.Cond); flow.Kind != FlowNone {
			return flow, nil
		}
		if fm.State.Status() != 0 {
			break
		}
		flow, err := fm.iterate(chunk, nil)
		bodyStatus = fm.State.Status()
		if err != nil || flow.Kind == FlowBreak {
			fm.State.SetStatus(bodyStatus)
			return flowNone, err
		} else if flow.Kind != FlowNone && flow.Kind != FlowContinue {
			return flow, nil
		}
	}
	fm.State.SetStatus(bodyStatus)
	return flowNone, nil
}

// Runs one iteration of a loop body in a new block scope.
func (fm *Frame) iterate(chunk *parse.Chunk, init func()) (Flow, error) {
	fm.State.PushScope(state.BlockScope)
	defer fm.State.PopScope()
	if init != nil {
		init()
	}
	fm.loops++
	defer func() { fm.loops-- }()
	return fm.execChunk(chunk)
}

// Calls a function in this process. The function runs in a new function
// scope, with $argv and its parameters bound to the arguments.
func (fm *Frame) callFunction(fn *state.Function, args []string) uint8 {
	src, chunk, err := fm.parseFunction(fn)
	if err != nil {
		fm.complain(err)
		return 1
	}
	fm.State.PushScope(state.FunctionScope)
	defer fm.State.PopScope()
	fm.State.SetLocal("argv", args)
	for i, param := range fn.Params {
		if i < len(args) {
			fm.State.SetLocal(param, args[i:i+1])
		} else {
			fm.State.SetLocal(param, []string{})
		}
	}

	newFm := fm.forSource(src)
	newFm.canReturn = true
	flow, err := newFm.execChunk(chunk)
	if err != nil {
		fm.complain(err)
		return 1
	}
	if flow.Kind == FlowReturn || flow.Kind == FlowExit {
		return flow.Status
	}
	return fm.State.Status()
}

// Executes a file in the current scope. A return at its top level ends it.
func (fm *Frame) sourceFile(path string) (uint8, error) {
	src, err := readSource(path)
	if err != nil {
		return 1, err
	}
	chunk, err := parse.Parse(src)
	if err != nil {
		return 1, err
	}
	newFm := fm.forSource(src)
	newFm.canReturn = true
	flow, err := newFm.execChunk(chunk)
	if err != nil {
		return 1, err
	}
	if flow.Kind == FlowReturn || flow.Kind == FlowExit {
		return flow.Status, nil
	}
	return fm.State.Status(), nil
}
