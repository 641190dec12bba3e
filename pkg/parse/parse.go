// Package parse implements the lsh parser.
//
// The parser builds a tree of statements. Bodies of blocks (if, for, while
// and function definitions) are not parsed eagerly; they are recorded as
// ranges of the source and parsed when they are executed with [ParseBody].
// Words are recorded as a list of quoted parts whose text is kept raw; escape
// sequences, variables and substitutions are interpreted by the expander.
package parse

import (
	"errors"

	"src.lsh.sh/pkg/diag"
)

// Source describes a piece of source code.
type Source struct {
	Name   string
	Code   string
	IsFile bool
}

// SourceForTest returns a Source used for testing.
func SourceForTest(code string) Source {
	return Source{Name: "[test]", Code: code}
}

// Node is implemented by all AST nodes.
type Node interface {
	diag.Ranger
	SourceText() string
}

type node struct {
	diag.Ranging
	sourceText string
}

// SourceText returns the part of the source code that parses to the node.
func (n *node) SourceText() string { return n.sourceText }

// Chunk is a sequence of statements.
type Chunk struct {
	node
	Statements []Statement
}

// Statement is implemented by all kinds of statements.
type Statement interface {
	Node
	isStatement()
}

func (*CommandStmt) isStatement()  {}
func (*IfStmt) isStatement()       {}
func (*ForStmt) isStatement()      {}
func (*WhileStmt) isStatement()    {}
func (*FnStmt) isStatement()       {}
func (*BreakStmt) isStatement()    {}
func (*ContinueStmt) isStatement() {}
func (*ReturnStmt) isStatement()   {}

// ChainOp is the operator that joins a pipeline to the previous one in a
// conditional chain.
type ChainOp int

// Possible values of ChainOp.
const (
	OpNone ChainOp = iota
	OpAnd          // &&
	OpOr           // ||
)

// ChainItem is a pipeline in a conditional chain.
type ChainItem struct {
	Op       ChainOp
	Pipeline *Pipeline
}

// CaptureMode determines how captured output is stored.
type CaptureMode int

// Possible values of CaptureMode.
const (
	// The whole output becomes one string, with trailing newlines removed.
	CaptureString CaptureMode = iota
	// Each line of the output becomes one element.
	CaptureLines
)

// Capture describes a "=> var" or "=>@ var" suffix.
type Capture struct {
	Mode CaptureMode
	Var  string
}

// CommandStmt is a conditional chain of pipelines, optionally run in the
// background or with its output captured into a variable.
type CommandStmt struct {
	node
	Items      []ChainItem
	Background bool
	Capture    *Capture
}

// Pipeline is a sequence of commands joined with "|".
type Pipeline struct {
	node
	Commands []*Command
}

// Command is a single simple command.
type Command struct {
	node
	Assignments []*Assignment
	Words       []*Word
	Redirs      []*Redir
}

// Assignment is a "NAME=value" prefix of a command.
type Assignment struct {
	node
	Name  string
	Value *Word
}

// RedirMode is the mode of a redirection.
type RedirMode int

// Possible values of RedirMode.
const (
	Read   RedirMode = iota // <
	Write                   // >
	Append                  // >>
	Dup                     // >&N or <&N
)

// Redir is a redirection.
type Redir struct {
	node
	FD   int
	Mode RedirMode
	// Target is set for all modes except Dup.
	Target *Word
	// DupFD is set for Dup.
	DupFD int
}

// Quoting is the quoting style of a word part.
type Quoting int

// Possible values of Quoting.
const (
	Bare Quoting = iota
	DoubleQuoted
	SingleQuoted
)

// WordPart is a maximal run of a word with one quoting style. The text is
// raw: it does not include the quotes, but escape sequences, variables and
// substitutions are preserved verbatim.
type WordPart struct {
	Quoting Quoting
	Text    string
}

// Word is one argument of a command.
type Word struct {
	node
	Parts []WordPart
}

// Body is the unparsed body of a block.
type Body struct {
	diag.Ranging
	Code string
}

// IfBranch is one branch of an if statement. The Cond of an else branch is
// nil.
type IfBranch struct {
	Cond *CommandStmt
	Body Body
}

// IfStmt is an if statement.
type IfStmt struct {
	node
	Branches []*IfBranch
}

// ForStmt is a for loop.
type ForStmt struct {
	node
	Var   string
	Words []*Word
	Body  Body
}

// WhileStmt is a while loop.
type WhileStmt struct {
	node
	Cond *CommandStmt
	Body Body
}

// FnStmt defines a function.
type FnStmt struct {
	node
	Name   string
	Params []string
	Body   Body
}

// BreakStmt is "break".
type BreakStmt struct{ node }

// ContinueStmt is "continue".
type ContinueStmt struct{ node }

// ReturnStmt is "return" with an optional status word.
type ReturnStmt struct {
	node
	Status *Word
}

// Error is a parse error.
type Error = diag.Error

const errorType = "parse error"

// GetError returns err if it is a parse error, and nil otherwise.
func GetError(err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Type == errorType {
		return e
	}
	return nil
}

// Parse parses the given source. The returned error, if not nil, always has
// type *Error.
func Parse(src Source) (*Chunk, error) {
	ps := &parser{srcName: src.Name, src: src.Code, end: len(src.Code)}
	return ps.parseTop()
}

// ParseBody parses the body of a block in the source it was parsed from.
// Positions in the result and in errors are relative to the whole source.
func ParseBody(src Source, body Body) (*Chunk, error) {
	ps := &parser{srcName: src.Name, src: src.Code, pos: body.From, end: body.To}
	return ps.parseTop()
}

// IsIdentifier returns whether s can be used as a variable or parameter name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		return true
	case '0' <= r && r <= '9':
		return !first
	}
	return false
}
