package expand

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/testutil"
)

type testContext struct {
	vars     map[string][]string
	cwd      string
	captures map[string]string
}

func (c *testContext) Get(name string) ([]string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *testContext) Cwd() string  { return c.cwd }
func (c *testContext) Home() string { return "/home/me" }

func (c *testContext) Capture(code string) ([]byte, error) {
	if out, ok := c.captures[code]; ok {
		return []byte(out), nil
	}
	return nil, errors.New("cannot run " + code)
}

func newTestContext(cwd string) *testContext {
	return &testContext{
		vars: map[string][]string{
			"x":      {"a", "b", "c"},
			"y":      {"1", "2"},
			"one":    {"v"},
			"i":      {"2"},
			"empty":  {},
			"argv":   {"p", "q"},
			"pat":    {"*.go"},
			"spaced": {"a b"},
			"bs":     {`a\b`},
			"star":   {"*"},
		},
		cwd:      cwd,
		captures: map[string]string{"echo hi": "a\nb\n", "true": "",
			"echo pats": "*.txt\nnone*\n"},
	}
}

func mustWord(t *testing.T, code string) *parse.Word {
	t.Helper()
	chunk, err := parse.Parse(parse.SourceForTest("echo " + code))
	if err != nil {
		t.Fatalf("parse %q: %v", code, err)
	}
	return chunk.Statements[0].(*parse.CommandStmt).Items[0].Pipeline.Commands[0].Words[1]
}

var expandTests = []struct {
	code    string
	want    []string
	wantErr error
}{
	// Literals and quoting
	{code: "abc", want: []string{"abc"}},
	{code: `a"b c"'d'`, want: []string{"ab cd"}},
	{code: `'$x'`, want: []string{"$x"}},

	// Escapes
	{code: `a\ b`, want: []string{"a b"}},
	{code: `\n`, want: []string{"\n"}},
	{code: `"a\qb"`, want: []string{`a\qb`}},
	{code: `"\$x\t"`, want: []string{"$x\t"}},

	// Braces
	{code: "a{b,c}d", want: []string{"abd", "acd"}},
	{code: "{a,b{1,2}}", want: []string{"a", "b1", "b2"}},
	{code: "x{a,b}{1,2}", want: []string{"xa1", "xa2", "xb1", "xb2"}},
	{code: "{}", want: []string{"{}"}},
	{code: "{a}", want: []string{"a"}},
	{code: `{a\,b,c}`, want: []string{"a,b", "c"}},
	{code: "${one}{1,2}", want: []string{"v1", "v2"}},
	{code: `"{a,b}"`, want: []string{"{a,b}"}},

	// Variables
	{code: "$x", want: []string{"a", "b", "c"}},
	{code: "pre$x", want: []string{"prea", "preb", "prec"}},
	{code: `"$x"`, want: []string{"a b c"}},
	{code: "$x$y", want: []string{"a1", "a2", "b1", "b2", "c1", "c2"}},
	{code: "$spaced", want: []string{"a b"}},
	{code: "$bs", want: []string{`a\b`}},
	{code: `"$bs"`, want: []string{`a\b`}},
	{code: "$empty", want: nil},
	{code: "pre$empty", want: nil},
	{code: "$unset", want: nil},
	{code: `"$unset"`, want: []string{""}},
	{code: "${one}x", want: []string{"vx"}},
	{code: "a$", want: []string{"a$"}},
	{code: "${bad-name}", wantErr: ErrBadSubstitution},

	// Indexing and slicing
	{code: "$x[2]", want: []string{"b"}},
	{code: "$x[-1]", want: []string{"c"}},
	{code: "$x[5]", want: nil},
	{code: "$x[0]", want: nil},
	{code: "$x[2..3]", want: []string{"b", "c"}},
	{code: "$x[2..]", want: []string{"b", "c"}},
	{code: "$x[..2]", want: []string{"a", "b"}},
	{code: "$x[-2..-1]", want: []string{"b", "c"}},
	{code: "$x[2..10]", want: []string{"b", "c"}},
	{code: "$x[3..1]", want: nil},
	{code: "$x[$i]", want: []string{"b"}},
	{code: `"$x[1..2]"`, want: []string{"a b"}},
	{code: "$x[foo]", wantErr: ErrBadIndex},
	{code: "$x[$y]", wantErr: ErrBadIndex},

	// Positional and special variables
	{code: "$1", want: []string{"p"}},
	{code: "$3", want: nil},
	{code: "$#", want: []string{"2"}},
	{code: "$*", want: []string{"p", "q"}},
	{code: `"$*"`, want: []string{"p q"}},
	{code: "$argv[2]", want: []string{"q"}},

	// Tilde
	{code: "~", want: []string{"/home/me"}},
	{code: "~/x", want: []string{"/home/me/x"}},
	{code: `"~"`, want: []string{"~"}},
	{code: "a~", want: []string{"a~"}},
	{code: "~nosuchuser12345/x", want: []string{"~nosuchuser12345/x"}},

	// Command substitution
	{code: "$(echo hi)", want: []string{"a", "b"}},
	{code: "x$(echo hi)", want: []string{"xa", "xb"}},
	{code: `"$(echo hi)"`, want: []string{"a\nb"}},
	{code: "$(true)", want: nil},
	{code: `"$(true)"`, want: []string{""}},
}

func TestExpand(t *testing.T) {
	ctx := newTestContext("/")
	for _, test := range expandTests {
		got, err := Expand(mustWord(t, test.code), ctx)
		if test.wantErr != nil {
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Expand(%q) -> error %v, want %v", test.code, err, test.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Expand(%q) -> error %v", test.code, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Expand(%q) (-want +got):\n%s", test.code, diff)
		}
	}
}

func TestExpand_CaptureError(t *testing.T) {
	_, err := Expand(mustWord(t, "$(bad)"), newTestContext("/"))
	if err == nil || err.Error() != "cannot run bad" {
		t.Errorf("got error %v", err)
	}
}

func TestExpand_Glob(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.ApplyDirIn(testutil.Dir{
		"b.go": "", "a.go": "", "c.txt": "", ".hidden.go": "",
		"d": testutil.Dir{"e.go": ""},
	}, dir)
	ctx := newTestContext(dir)

	tests := []struct {
		code string
		want []string
	}{
		{"*.go", []string{"a.go", "b.go"}},
		{"?.txt", []string{"c.txt"}},
		{"[ab].go", []string{"a.go", "b.go"}},
		{"d/*.go", []string{"d/e.go"}},
		{".*.go", []string{".hidden.go"}},
		{"{a,c}.*", []string{"a.go", "c.txt"}},
		{"*.none", []string{"*.none"}},
		{`\*.go`, []string{"*.go"}},
		{`'*.go'`, []string{"*.go"}},
		{`"*.go"`, []string{"*.go"}},
		{"$pat", []string{"a.go", "b.go"}},
		{`"$pat"`, []string{"*.go"}},
		{"d/$star", []string{"d/e.go"}},
		{"$(echo pats)", []string{"c.txt", "none*"}},
		{`"$(echo pats)"`, []string{"*.txt\nnone*"}},
	}
	for _, test := range tests {
		got, err := Expand(mustWord(t, test.code), ctx)
		if err != nil {
			t.Errorf("Expand(%q) -> error %v", test.code, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Expand(%q) (-want +got):\n%s", test.code, diff)
		}
	}
}

func TestExpandAll(t *testing.T) {
	chunk, err := parse.Parse(parse.SourceForTest("echo $y {a,b} c"))
	if err != nil {
		t.Fatal(err)
	}
	words := chunk.Statements[0].(*parse.CommandStmt).Items[0].Pipeline.Commands[0].Words
	got, err := ExpandAll(words, newTestContext("/"))
	want := []string{"echo", "1", "2", "a", "b", "c"}
	if err != nil || !cmp.Equal(got, want) {
		t.Errorf("ExpandAll -> %q, %v, want %q", got, err, want)
	}
}

func TestSplitLines(t *testing.T) {
	for in, want := range map[string][]string{
		"":       {},
		"\n":     {},
		"a":      {"a"},
		"a\nb\n": {"a", "b"},
		"a\n\nb": {"a", "", "b"},
	} {
		if got := SplitLines(in); !cmp.Equal(got, want) {
			t.Errorf("SplitLines(%q) -> %q, want %q", in, got, want)
		}
	}
}
