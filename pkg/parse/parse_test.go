package parse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var parseTests = []struct {
	name string
	code string
	want []string

	wantErrMsg     string
	wantErrPartial bool
}{
	// Statements and separators
	{
		name: "simple command",
		code: "echo a b",
		want: []string{"echo a b"},
	},
	{
		name: "statements separated by semicolons, newlines and comments",
		code: "a;b\n\n c # comment\n",
		want: []string{"a", "b", "c"},
	},
	{
		name: "quoted parts",
		code: `echo "x $y" 'z'w`,
		want: []string{`echo "x $y" 'z'w`},
	},
	{
		name: "escapes are kept raw",
		code: `echo a\ b \;`,
		want: []string{`echo a\ b \;`},
	},
	{
		name: "hash inside word is not a comment",
		code: "echo a#b",
		want: []string{"echo a#b"},
	},
	{
		name: "command substitution with spaces and quotes",
		code: `echo $(echo "a b" | tr a b) x`,
		want: []string{`echo $(echo "a b" | tr a b) x`},
	},
	{
		name: "line continuation",
		code: "echo a \\\n b",
		want: []string{"echo a b"},
	},

	// Pipelines and chains
	{
		name: "pipeline with newline after pipe",
		code: "a | b |\n c",
		want: []string{"a | b | c"},
	},
	{
		name: "conditional chain",
		code: "a && b || c",
		want: []string{"a && b || c"},
	},
	{
		name: "background",
		code: "sleep 1 &",
		want: []string{"sleep 1 &"},
	},
	{
		name: "ampersand separates statements",
		code: "a & b",
		want: []string{"a &", "b"},
	},
	{
		name: "capture",
		code: "ls => x; ls =>@ lines",
		want: []string{"ls => x", "ls =>@ lines"},
	},

	// Commands
	{
		name: "assignments only before the head",
		code: "A=1 B=$x cmd arg C=2",
		want: []string{"[A=1] [B=$x] cmd arg C=2"},
	},
	{
		name: "assignment only",
		code: "X=1",
		want: []string{"[X=1]"},
	},
	{
		name: "quoted equal sign is not an assignment",
		code: "'A=1' x",
		want: []string{"'A=1' x"},
	},
	{
		name: "redirections",
		code: "cat <in >out 2>>err 2>&1 >&2",
		want: []string{"cat 0<in 1>out 2>>err 2>&1 1>&2"},
	},

	// Blocks
	{
		name: "if, else if and else",
		code: "if a; b; else if c; d; else; e; end",
		want: []string{"if a {b} else if c {d} else {e}"},
	},
	{
		name: "nested if",
		code: "if a; if b; c; end; end",
		want: []string{"if a {if b; c; end}"},
	},
	{
		name: "for",
		code: "for i in 1 2 3\n echo $i\nend",
		want: []string{"for i in 1 2 3 {echo $i}"},
	},
	{
		name: "while",
		code: "while true; break; end",
		want: []string{"while true {break}"},
	},
	{
		name: "function with params",
		code: "fn greet name; echo hi $name; return 3; end",
		want: []string{"fn greet(name) {echo hi $name; return 3}"},
	},
	{
		name: "function keyword",
		code: "function f; end",
		want: []string{"fn f() {}"},
	},
	{
		name: "keywords as arguments",
		code: "echo end else if",
		want: []string{"echo end else if"},
	},
	{
		name: "keyword prefix is not a keyword",
		code: "endless; iffy",
		want: []string{"endless", "iffy"},
	},
	{
		name: "loop control",
		code: "continue; return",
		want: []string{"continue", "return"},
	},

	// Errors
	{
		name:           "unterminated single quote",
		code:           "echo 'abc",
		wantErrMsg:     "unterminated single-quoted string",
		wantErrPartial: true,
	},
	{
		name:           "unterminated double quote",
		code:           `echo "abc`,
		wantErrMsg:     "unterminated double-quoted string",
		wantErrPartial: true,
	},
	{
		name:           "unterminated command substitution",
		code:           "echo $(ls",
		wantErrMsg:     "unterminated command substitution",
		wantErrPartial: true,
	},
	{
		name:           "unterminated if",
		code:           "if true; echo",
		wantErrMsg:     "unterminated if, should be end",
		wantErrPartial: true,
	},
	{
		name:           "unterminated for",
		code:           "for x in a b; echo",
		wantErrMsg:     "unterminated for, should be end",
		wantErrPartial: true,
	},
	{
		name:       "stray end",
		code:       "end",
		wantErrMsg: "unexpected end",
	},
	{
		name:       "stray else",
		code:       "echo; else",
		wantErrMsg: "unexpected else",
	},
	{
		name:           "missing redirection target",
		code:           "echo >",
		wantErrMsg:     "should be filename",
		wantErrPartial: true,
	},
	{
		name:       "bad file descriptor in dup",
		code:       "echo 2>&x",
		wantErrMsg: "should be file descriptor",
	},
	{
		name:           "missing command after pipe",
		code:           "a |",
		wantErrMsg:     "should be command",
		wantErrPartial: true,
	},
	{
		name:       "redirection without command",
		code:       ">out",
		wantErrMsg: "missing command",
	},
	{
		name:           "missing capture variable",
		code:           "echo a => ",
		wantErrMsg:     "should be variable name",
		wantErrPartial: true,
	},
	{
		name:       "capture of background job",
		code:       "sleep 1 & => x",
		wantErrMsg: "cannot capture the output of a background job",
	},
	{
		name:       "bad loop variable",
		code:       "for 1 in a; end",
		wantErrMsg: "should be variable name",
	},
	{
		name:       "missing condition",
		code:       "while; end",
		wantErrMsg: "should be condition",
	},
	{
		name:       "missing function name",
		code:       "fn; end",
		wantErrMsg: "should be function name",
	},
}

func TestParse(t *testing.T) {
	for _, test := range parseTests {
		t.Run(test.name, func(t *testing.T) {
			chunk, err := Parse(SourceForTest(test.code))
			if test.wantErrMsg != "" {
				e, ok := err.(*Error)
				if !ok {
					t.Fatalf("got error %v, want *Error", err)
				}
				if e.Message != test.wantErrMsg {
					t.Errorf("got message %q, want %q", e.Message, test.wantErrMsg)
				}
				if e.Partial != test.wantErrPartial {
					t.Errorf("got partial %v, want %v", e.Partial, test.wantErrPartial)
				}
				return
			}
			if err != nil {
				t.Fatalf("got error %v", err)
			}
			var got []string
			for _, stmt := range chunk.Statements {
				got = append(got, dumpStatement(stmt))
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_ErrorType(t *testing.T) {
	_, err := Parse(Source{Name: "a.lsh", Code: "echo 'x"})
	want := "parse error: a.lsh:line 1: unterminated single-quoted string"
	if err == nil || err.Error() != want {
		t.Errorf("got error %v, want %q", err, want)
	}
}

func TestParse_SourceText(t *testing.T) {
	chunk, err := Parse(SourceForTest("sleep 10 | cat  &   \necho x"))
	if err != nil {
		t.Fatal(err)
	}
	stmt := chunk.Statements[0].(*CommandStmt)
	if got := stmt.SourceText(); got != "sleep 10 | cat  &" {
		t.Errorf("got source text %q", got)
	}
	if got := stmt.Items[0].Pipeline.SourceText(); got != "sleep 10 | cat" {
		t.Errorf("got pipeline source text %q", got)
	}
}

func TestParseBody(t *testing.T) {
	src := SourceForTest("if a\n  echo x\nend")
	chunk, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	body := chunk.Statements[0].(*IfStmt).Branches[0].Body
	if body.Code != "  echo x\n" {
		t.Errorf("got body code %q", body.Code)
	}
	bodyChunk, err := ParseBody(src, body)
	if err != nil {
		t.Fatal(err)
	}
	stmt := bodyChunk.Statements[0]
	if stmt.SourceText() != "echo x" || stmt.Range().From != 7 {
		t.Errorf("got statement %q at %d, want %q at 7",
			stmt.SourceText(), stmt.Range().From, "echo x")
	}
}

func TestFindSubstEnd(t *testing.T) {
	tests := []struct {
		s      string
		wantOK bool
		want   int
	}{
		{"$(a)", true, 4},
		{"$(a (b) c) d", true, 10},
		{"$(echo ')') x", true, 11},
		{`$(echo ")" $(b)) x`, true, 16},
		{`$(echo \)) x`, true, 10},
		{"$(a", false, 0},
		{"$(a 'b)", false, 0},
	}
	for _, test := range tests {
		got, ok := FindSubstEnd(test.s, 0)
		if ok != test.wantOK || got != test.want {
			t.Errorf("FindSubstEnd(%q) -> (%v, %v), want (%v, %v)",
				test.s, got, ok, test.want, test.wantOK)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"a": true, "_x1": true, "PATH": true,
		"": false, "1a": false, "a-b": false, "a b": false,
	} {
		if got := IsIdentifier(s); got != want {
			t.Errorf("IsIdentifier(%q) -> %v, want %v", s, got, want)
		}
	}
}

func dumpStatement(s Statement) string {
	switch s := s.(type) {
	case *CommandStmt:
		return dumpCommandStmt(s)
	case *IfStmt:
		var parts []string
		for i, b := range s.Branches {
			switch {
			case i == 0:
				parts = append(parts, "if "+dumpCommandStmt(b.Cond))
			case b.Cond != nil:
				parts = append(parts, "else if "+dumpCommandStmt(b.Cond))
			default:
				parts = append(parts, "else")
			}
			parts = append(parts, dumpBody(b.Body))
		}
		return strings.Join(parts, " ")
	case *ForStmt:
		return fmt.Sprintf("for %s in %s %s",
			s.Var, dumpWords(s.Words), dumpBody(s.Body))
	case *WhileStmt:
		return fmt.Sprintf("while %s %s", dumpCommandStmt(s.Cond), dumpBody(s.Body))
	case *FnStmt:
		return fmt.Sprintf("fn %s(%s) %s",
			s.Name, strings.Join(s.Params, " "), dumpBody(s.Body))
	case *BreakStmt:
		return "break"
	case *ContinueStmt:
		return "continue"
	case *ReturnStmt:
		if s.Status != nil {
			return "return " + dumpWord(s.Status)
		}
		return "return"
	}
	return fmt.Sprintf("unknown %T", s)
}

func dumpBody(b Body) string {
	return "{" + strings.Trim(b.Code, " ;\n") + "}"
}

func dumpCommandStmt(s *CommandStmt) string {
	var sb strings.Builder
	for _, item := range s.Items {
		switch item.Op {
		case OpAnd:
			sb.WriteString(" && ")
		case OpOr:
			sb.WriteString(" || ")
		}
		var cmds []string
		for _, cmd := range item.Pipeline.Commands {
			cmds = append(cmds, dumpCommand(cmd))
		}
		sb.WriteString(strings.Join(cmds, " | "))
	}
	if s.Background {
		sb.WriteString(" &")
	}
	if s.Capture != nil {
		if s.Capture.Mode == CaptureLines {
			sb.WriteString(" =>@ " + s.Capture.Var)
		} else {
			sb.WriteString(" => " + s.Capture.Var)
		}
	}
	return sb.String()
}

func dumpCommand(c *Command) string {
	var parts []string
	for _, a := range c.Assignments {
		parts = append(parts, "["+a.Name+"="+dumpWord(a.Value)+"]")
	}
	if len(c.Words) > 0 {
		parts = append(parts, dumpWords(c.Words))
	}
	for _, r := range c.Redirs {
		op := map[RedirMode]string{Read: "<", Write: ">", Append: ">>", Dup: ">&"}[r.Mode]
		if r.Mode == Dup {
			parts = append(parts, fmt.Sprintf("%d%s%d", r.FD, op, r.DupFD))
		} else {
			parts = append(parts, fmt.Sprintf("%d%s%s", r.FD, op, dumpWord(r.Target)))
		}
	}
	return strings.Join(parts, " ")
}

func dumpWords(ws []*Word) string {
	var parts []string
	for _, w := range ws {
		parts = append(parts, dumpWord(w))
	}
	return strings.Join(parts, " ")
}

func dumpWord(w *Word) string {
	var sb strings.Builder
	for _, p := range w.Parts {
		switch p.Quoting {
		case Bare:
			sb.WriteString(p.Text)
		case DoubleQuoted:
			sb.WriteString(`"` + p.Text + `"`)
		case SingleQuoted:
			sb.WriteString("'" + p.Text + "'")
		}
	}
	return sb.String()
}
