package parse

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"src.lsh.sh/pkg/diag"
)

// parser maintains some mutable states of parsing.
//
// NOTE: The src member is assumed to be valid UF-8.
type parser struct {
	srcName string
	src     string
	pos     int
	end     int
	err     *Error
}

// Panicked with after the first error is recorded.
type abort struct{}

const eof rune = -1

var keywords = []string{
	"if", "else", "end", "for", "while", "fn", "function",
	"break", "continue", "return",
}

func (ps *parser) parseTop() (ch *Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); !ok {
				panic(r)
			}
			ch, err = nil, ps.err
		}
	}()
	begin := ps.pos
	ch = &Chunk{}
	ch.Statements, _, _ = ps.statements()
	ps.finish(&ch.node, begin)
	return ch, nil
}

func (ps *parser) finish(n *node, begin int) {
	to := ps.pos
	for to > begin && (ps.src[to-1] == ' ' || ps.src[to-1] == '\t') {
		to--
	}
	n.From, n.To = begin, to
	n.sourceText = ps.src[begin:to]
}

func (ps *parser) peek() rune {
	if ps.pos >= ps.end {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(ps.src[ps.pos:ps.end])
	return r
}

func (ps *parser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(ps.src[ps.pos:ps.end], prefix)
}

func (ps *parser) advance() {
	if ps.pos < ps.end {
		_, s := utf8.DecodeRuneInString(ps.src[ps.pos:ps.end])
		ps.pos += s
	}
}

func (ps *parser) errorp(from, to int, msg string) {
	r := diag.Ranging{From: from, To: to}
	ps.err = &Error{
		Type:    errorType,
		Message: msg,
		Context: *diag.NewContext(ps.srcName, ps.src, r),
		Partial: from >= ps.end,
	}
	panic(abort{})
}

func (ps *parser) error(msg string) {
	end := ps.pos
	if end < ps.end {
		_, s := utf8.DecodeRuneInString(ps.src[ps.pos:ps.end])
		end += s
	}
	ps.errorp(ps.pos, end, msg)
}

func (ps *parser) errorAtEnd(msg string) {
	ps.errorp(ps.end, ps.end, msg)
}

func (ps *parser) unexpected() {
	if r := ps.peek(); r == eof {
		ps.error("unexpected end of code")
	} else {
		ps.error(fmt.Sprintf("unexpected rune %q", r))
	}
}

// Skips spaces, tabs and line continuations.
func (ps *parser) skipSpaces() {
	for {
		switch {
		case ps.hasPrefix(" "), ps.hasPrefix("\t"), ps.hasPrefix("\r"):
			ps.pos++
		case ps.hasPrefix("\\\n"):
			ps.pos += 2
		default:
			return
		}
	}
}

func (ps *parser) skipComment() {
	if ps.peek() == '#' {
		for ps.pos < ps.end && ps.src[ps.pos] != '\n' {
			ps.pos++
		}
	}
}

// Skips whitespace, comments and statement separators.
func (ps *parser) skipSeps() {
	for {
		ps.skipSpaces()
		ps.skipComment()
		if r := ps.peek(); r == '\n' || r == ';' {
			ps.pos++
		} else {
			return
		}
	}
}

// Skips whitespace, comments and newlines; used after "|", "&&" and "||".
func (ps *parser) skipSpacesAndNewlines() {
	for {
		ps.skipSpaces()
		ps.skipComment()
		if ps.peek() == '\n' {
			ps.pos++
		} else {
			return
		}
	}
}

func (ps *parser) atStatementEnd() bool {
	r := ps.peek()
	return r == eof || r == '\n' || r == ';' || r == '#'
}

func (ps *parser) atCommandEnd() bool {
	r := ps.peek()
	return ps.atStatementEnd() || r == '|' || r == '&' || ps.hasPrefix("=>")
}

// Requires the current statement to end here.
func (ps *parser) endOfStatement() {
	ps.skipSpaces()
	if !ps.atStatementEnd() {
		ps.unexpected()
	}
}

// Requires a separator after the header of a block.
func (ps *parser) separator(what string) {
	ps.skipSpaces()
	ps.skipComment()
	switch ps.peek() {
	case '\n', ';':
		ps.pos++
	case eof:
		ps.errorAtEnd(fmt.Sprintf("unterminated %s, should be newline or ;", what))
	default:
		ps.unexpected()
	}
}

// Returns the keyword at the current position, if any.
func (ps *parser) peekKeyword() (string, bool) {
	return ps.peekBareword(keywords...)
}

func (ps *parser) peekBareword(candidates ...string) (string, bool) {
	i := ps.pos
	for i < ps.end && 'a' <= ps.src[i] && ps.src[i] <= 'z' {
		i++
	}
	w := ps.src[ps.pos:i]
	if !slices.Contains(candidates, w) {
		return "", false
	}
	if i < ps.end {
		switch ps.src[i] {
		case ' ', '\t', '\r', '\n', ';', '#':
		default:
			return "", false
		}
	}
	return w, true
}

// Parses statements until the end of code or one of the given terminating
// keywords. It returns the terminator found and its position.
func (ps *parser) statements(terms ...string) ([]Statement, string, int) {
	var stmts []Statement
	for {
		ps.skipSeps()
		if ps.pos >= ps.end {
			return stmts, "", ps.pos
		}
		if kw, ok := ps.peekKeyword(); ok && (kw == "end" || kw == "else") {
			if slices.Contains(terms, kw) {
				from := ps.pos
				ps.pos += len(kw)
				return stmts, kw, from
			}
			ps.errorp(ps.pos, ps.pos+len(kw), "unexpected "+kw)
		}
		stmt := ps.statement()
		stmts = append(stmts, stmt)
		if cs, ok := stmt.(*CommandStmt); ok && cs.Background {
			// "&" also separates statements.
			continue
		}
		ps.endOfStatement()
	}
}

func (ps *parser) statement() Statement {
	kw, _ := ps.peekKeyword()
	switch kw {
	case "if":
		return ps.ifStmt()
	case "for":
		return ps.forStmt()
	case "while":
		return ps.whileStmt()
	case "fn", "function":
		return ps.fnStmt(kw)
	case "break":
		n := &BreakStmt{}
		ps.keywordOnly(&n.node, kw)
		return n
	case "continue":
		n := &ContinueStmt{}
		ps.keywordOnly(&n.node, kw)
		return n
	case "return":
		return ps.returnStmt()
	}
	return ps.commandStmt()
}

func (ps *parser) keywordOnly(n *node, kw string) {
	begin := ps.pos
	ps.pos += len(kw)
	ps.finish(n, begin)
}

func (ps *parser) ifStmt() *IfStmt {
	begin := ps.pos
	ps.pos += len("if")
	n := &IfStmt{}
	for {
		cond := ps.condition("if")
		body, kw := ps.body("if", "else", "end")
		n.Branches = append(n.Branches, &IfBranch{Cond: cond, Body: body})
		if kw == "end" {
			break
		}
		ps.skipSpaces()
		if kw, ok := ps.peekBareword("if"); ok {
			ps.pos += len(kw)
			continue
		}
		body, _ = ps.body("if", "end")
		n.Branches = append(n.Branches, &IfBranch{Body: body})
		break
	}
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) forStmt() *ForStmt {
	begin := ps.pos
	ps.pos += len("for")
	n := &ForStmt{}
	ps.skipSpaces()
	n.Var = ps.identifier("variable name")
	ps.skipSpaces()
	if _, ok := ps.peekBareword("in"); !ok {
		if ps.pos >= ps.end {
			ps.errorAtEnd("should be in")
		}
		ps.error("should be in")
	}
	ps.pos += len("in")
	for {
		ps.skipSpaces()
		if ps.atStatementEnd() {
			break
		}
		n.Words = append(n.Words, ps.word())
	}
	ps.separator("for")
	n.Body, _ = ps.body("for", "end")
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) whileStmt() *WhileStmt {
	begin := ps.pos
	ps.pos += len("while")
	n := &WhileStmt{}
	n.Cond = ps.condition("while")
	n.Body, _ = ps.body("while", "end")
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) fnStmt(kw string) *FnStmt {
	begin := ps.pos
	ps.pos += len(kw)
	n := &FnStmt{}
	ps.skipSpaces()
	nameBegin := ps.pos
	for ps.pos < ps.end {
		r, s := utf8.DecodeRuneInString(ps.src[ps.pos:ps.end])
		if !isIdentRune(r, false) && r != '-' && r != '.' {
			break
		}
		ps.pos += s
	}
	if ps.pos == nameBegin {
		if ps.pos >= ps.end {
			ps.errorAtEnd("should be function name")
		}
		ps.error("should be function name")
	}
	n.Name = ps.src[nameBegin:ps.pos]
	for {
		ps.skipSpaces()
		if ps.atStatementEnd() {
			break
		}
		n.Params = append(n.Params, ps.identifier("parameter name"))
	}
	ps.separator("function definition")
	n.Body, _ = ps.body("function definition", "end")
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) returnStmt() *ReturnStmt {
	begin := ps.pos
	ps.pos += len("return")
	n := &ReturnStmt{}
	ps.skipSpaces()
	if !ps.atStatementEnd() {
		n.Status = ps.word()
	}
	ps.finish(&n.node, begin)
	return n
}

// Parses the condition of an if or while statement, followed by a separator.
func (ps *parser) condition(what string) *CommandStmt {
	ps.skipSpaces()
	if ps.atStatementEnd() {
		if ps.pos >= ps.end {
			ps.errorAtEnd("should be condition")
		}
		ps.error("should be condition")
	}
	cond := ps.commandStmt()
	if cond.Background || cond.Capture != nil {
		ps.errorp(cond.From, cond.To, "condition cannot be backgrounded or captured")
	}
	ps.separator(what)
	return cond
}

// Scans a block body up to one of the terminating keywords, checking its
// syntax along the way.
func (ps *parser) body(what string, terms ...string) (Body, string) {
	from := ps.pos
	_, kw, to := ps.statements(terms...)
	if kw == "" {
		ps.errorAtEnd(fmt.Sprintf("unterminated %s, should be end", what))
	}
	return Body{Ranging: diag.Ranging{From: from, To: to}, Code: ps.src[from:to]}, kw
}

func (ps *parser) identifier(what string) string {
	begin := ps.pos
	for ps.pos < ps.end && isIdentRune(rune(ps.src[ps.pos]), ps.pos == begin) {
		ps.pos++
	}
	if ps.pos == begin {
		if ps.pos >= ps.end {
			ps.errorAtEnd("should be " + what)
		}
		ps.error("should be " + what)
	}
	return ps.src[begin:ps.pos]
}

func (ps *parser) commandStmt() *CommandStmt {
	begin := ps.pos
	n := &CommandStmt{}
	n.Items = append(n.Items, ChainItem{OpNone, ps.pipeline()})
	for {
		ps.skipSpaces()
		var op ChainOp
		switch {
		case ps.hasPrefix("&&"):
			op = OpAnd
		case ps.hasPrefix("||"):
			op = OpOr
		}
		if op == OpNone {
			break
		}
		ps.pos += 2
		ps.skipSpacesAndNewlines()
		n.Items = append(n.Items, ChainItem{op, ps.pipeline()})
	}
	if ps.peek() == '&' {
		ps.pos++
		n.Background = true
		ps.skipSpaces()
	}
	if ps.hasPrefix("=>") {
		captureBegin := ps.pos
		ps.pos += 2
		mode := CaptureString
		if ps.peek() == '@' {
			ps.pos++
			mode = CaptureLines
		}
		ps.skipSpaces()
		n.Capture = &Capture{Mode: mode, Var: ps.identifier("variable name")}
		if n.Background {
			ps.errorp(captureBegin, ps.pos, "cannot capture the output of a background job")
		}
	}
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) pipeline() *Pipeline {
	begin := ps.pos
	n := &Pipeline{}
	n.Commands = append(n.Commands, ps.command())
	for {
		ps.skipSpaces()
		if ps.peek() != '|' || ps.hasPrefix("||") {
			break
		}
		ps.pos++
		ps.skipSpacesAndNewlines()
		n.Commands = append(n.Commands, ps.command())
	}
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) command() *Command {
	begin := ps.pos
	n := &Command{}
	for {
		ps.skipSpaces()
		if ps.atCommandEnd() {
			break
		}
		if ps.startsRedir() {
			n.Redirs = append(n.Redirs, ps.redir())
			continue
		}
		w := ps.word()
		if len(n.Words) == 0 {
			if a := asAssignment(w); a != nil {
				n.Assignments = append(n.Assignments, a)
				continue
			}
		}
		n.Words = append(n.Words, w)
	}
	if len(n.Words) == 0 && len(n.Assignments) == 0 {
		switch {
		case len(n.Redirs) > 0:
			ps.errorp(begin, ps.pos, "missing command")
		case ps.pos >= ps.end:
			ps.errorAtEnd("should be command")
		default:
			ps.error("should be command")
		}
	}
	ps.finish(&n.node, begin)
	return n
}

func asAssignment(w *Word) *Assignment {
	if len(w.Parts) == 0 || w.Parts[0].Quoting != Bare {
		return nil
	}
	text := w.Parts[0].Text
	i := strings.IndexByte(text, '=')
	if i <= 0 || !IsIdentifier(text[:i]) {
		return nil
	}
	value := &Word{}
	value.From, value.To = w.From+i+1, w.To
	value.sourceText = w.sourceText[i+1:]
	if rest := text[i+1:]; rest != "" {
		value.Parts = append(value.Parts, WordPart{Bare, rest})
	}
	value.Parts = append(value.Parts, w.Parts[1:]...)
	return &Assignment{node: w.node, Name: text[:i], Value: value}
}

func isDigit(b byte) bool { return '0' <= b && b <= '9' }

func (ps *parser) digitsEnd() int {
	i := ps.pos
	for i < ps.end && isDigit(ps.src[i]) {
		i++
	}
	return i
}

func (ps *parser) startsRedir() bool {
	i := ps.digitsEnd()
	return i < ps.end && (ps.src[i] == '<' || ps.src[i] == '>')
}

func (ps *parser) fd() int {
	begin := ps.pos
	ps.pos = ps.digitsEnd()
	fd, err := strconv.Atoi(ps.src[begin:ps.pos])
	if err != nil {
		ps.errorp(begin, ps.pos, "bad file descriptor")
	}
	return fd
}

func (ps *parser) redir() *Redir {
	begin := ps.pos
	n := &Redir{FD: -1}
	if isDigit(ps.src[ps.pos]) {
		n.FD = ps.fd()
	}
	defaultFD := 0
	if ps.src[ps.pos] == '<' {
		ps.pos++
		n.Mode = Read
	} else {
		ps.pos++
		defaultFD = 1
		n.Mode = Write
		if ps.peek() == '>' {
			ps.pos++
			n.Mode = Append
		}
	}
	if n.FD < 0 {
		n.FD = defaultFD
	}
	if ps.peek() == '&' {
		ps.pos++
		if ps.pos >= ps.end || !isDigit(ps.src[ps.pos]) {
			if ps.pos >= ps.end {
				ps.errorAtEnd("should be file descriptor")
			}
			ps.error("should be file descriptor")
		}
		n.Mode = Dup
		n.DupFD = ps.fd()
	} else {
		ps.skipSpaces()
		if ps.atCommandEnd() || ps.startsRedir() {
			if ps.pos >= ps.end {
				ps.errorAtEnd("should be filename")
			}
			ps.error("should be filename")
		}
		n.Target = ps.word()
	}
	ps.finish(&n.node, begin)
	return n
}

func isBareRune(r rune) bool {
	switch r {
	case eof, ' ', '\t', '\r', '\n', ';', '|', '&', '<', '>', '\'', '"':
		return false
	}
	return true
}

func (ps *parser) word() *Word {
	begin := ps.pos
	n := &Word{}
loop:
	for {
		switch r := ps.peek(); {
		case r == '\'':
			n.Parts = append(n.Parts, ps.singleQuoted())
		case r == '"':
			n.Parts = append(n.Parts, ps.doubleQuoted())
		case isBareRune(r) && !ps.hasPrefix("\\\n"):
			n.Parts = append(n.Parts, ps.bare())
		default:
			break loop
		}
	}
	if len(n.Parts) == 0 {
		ps.unexpected()
	}
	ps.finish(&n.node, begin)
	return n
}

func (ps *parser) bare() WordPart {
	begin := ps.pos
	for {
		r := ps.peek()
		switch {
		case r == '\\':
			if ps.hasPrefix("\\\n") {
				return WordPart{Bare, ps.src[begin:ps.pos]}
			}
			ps.pos++
			if ps.pos >= ps.end {
				ps.errorAtEnd("should be any character")
			}
			ps.advance()
		case ps.hasPrefix("$("):
			ps.subst()
		case isBareRune(r):
			ps.advance()
		default:
			return WordPart{Bare, ps.src[begin:ps.pos]}
		}
	}
}

func (ps *parser) singleQuoted() WordPart {
	ps.pos++
	i := strings.IndexByte(ps.src[ps.pos:ps.end], '\'')
	if i < 0 {
		ps.errorAtEnd("unterminated single-quoted string")
	}
	text := ps.src[ps.pos : ps.pos+i]
	ps.pos += i + 1
	return WordPart{SingleQuoted, text}
}

func (ps *parser) doubleQuoted() WordPart {
	ps.pos++
	begin := ps.pos
	for {
		switch r := ps.peek(); {
		case r == eof:
			ps.errorAtEnd("unterminated double-quoted string")
		case r == '"':
			text := ps.src[begin:ps.pos]
			ps.pos++
			return WordPart{DoubleQuoted, text}
		case r == '\\':
			ps.pos++
			if ps.pos >= ps.end {
				ps.errorAtEnd("unterminated double-quoted string")
			}
			ps.advance()
		case ps.hasPrefix("$("):
			ps.subst()
		default:
			ps.advance()
		}
	}
}

func (ps *parser) subst() {
	end, ok := FindSubstEnd(ps.src[:ps.end], ps.pos)
	if !ok {
		ps.errorAtEnd("unterminated command substitution")
	}
	ps.pos = end
}

// FindSubstEnd finds the end of the command substitution that starts with
// "$(" at s[start:]. It returns the index right after the matching ")", and
// whether one was found. Quotes and escapes inside the substitution are
// honored when looking for the matching parenthesis.
func FindSubstEnd(s string, start int) (int, bool) {
	depth := 1
	i := start + 2
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case '\'':
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				return 0, false
			}
			i += j + 2
			continue
		case '"':
			end, ok := skipDoubleQuoted(s, i)
			if !ok {
				return 0, false
			}
			i = end
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		i++
	}
	return 0, false
}

func skipDoubleQuoted(s string, i int) (int, bool) {
	i++
	for i < len(s) {
		switch {
		case s[i] == '\\':
			i += 2
		case s[i] == '"':
			return i + 1, true
		case strings.HasPrefix(s[i:], "$("):
			end, ok := FindSubstEnd(s, i)
			if !ok {
				return 0, false
			}
			i = end
		default:
			i++
		}
	}
	return 0, false
}
