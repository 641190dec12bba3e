// Package expand turns words into argument lists.
//
// Expansion of a word happens in four phases: brace expansion of bare parts,
// a text phase that interprets escapes, tildes, command substitutions and
// variable references in each part, the cartesian product of the results of
// all parts, and finally globbing. Variables are list-valued; a list-valued
// reference in a bare part contributes one alternative per element.
package expand

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/glob"
	"src.lsh.sh/pkg/parse"
)

// Context gives the expander access to the state of the shell.
type Context interface {
	// Get returns the value of a variable.
	Get(name string) ([]string, bool)
	// Cwd returns the directory relative patterns are globbed in.
	Cwd() string
	// Home returns the home directory of the current user.
	Home() string
	// Capture runs code and returns its standard output.
	Capture(code string) ([]byte, error)
}

// Errors returned from Expand. They are wrapped with details.
var (
	ErrBadSubstitution = errors.New("bad substitution")
	ErrBadIndex        = errors.New("bad index")
)

// A piece of an expansion result kept as a glob pattern, so that quoted text
// can be told apart from wildcards in bare text and substituted values.
type frag struct {
	pattern string
	meta    bool
}

func (f frag) plus(g frag) frag {
	return frag{f.pattern + g.pattern, f.meta || g.meta}
}

// Expand expands a word.
func Expand(w *parse.Word, ctx Context) ([]string, error) {
	results := []frag{{}}
	for i, part := range w.Parts {
		var alts []frag
		texts := []string{part.Text}
		if part.Quoting == parse.Bare {
			texts = Braces(part.Text)
		}
		for _, text := range texts {
			frags, err := expandPart(text, part.Quoting, i == 0, ctx)
			if err != nil {
				return nil, err
			}
			alts = append(alts, frags...)
		}
		results = product(results, alts)
	}

	var words []string
	for _, r := range results {
		if r.meta && glob.HasWildcard(r.pattern) {
			words = append(words, globOrLiteral(r.pattern, ctx.Cwd())...)
		} else {
			words = append(words, glob.Unescape(r.pattern))
		}
	}
	return words, nil
}

// ExpandAll expands words and concatenates the results.
func ExpandAll(ws []*parse.Word, ctx Context) ([]string, error) {
	var all []string
	for _, w := range ws {
		words, err := Expand(w, ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, words...)
	}
	return all, nil
}

func product(xs, ys []frag) []frag {
	results := make([]frag, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			results = append(results, x.plus(y))
		}
	}
	return results
}

func globOrLiteral(pattern, cwd string) []string {
	var matches []string
	glob.Parse(pattern).GlobIn(cwd, func(name string) bool {
		matches = append(matches, name)
		return true
	})
	if len(matches) == 0 {
		return []string{glob.Unescape(pattern)}
	}
	sort.Strings(matches)
	return matches
}

// SplitLines splits command output into lines. A trailing newline does not
// start a new line, and empty output has no lines.
func SplitLines(out string) []string {
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return []string{}
	}
	return strings.Split(out, "\n")
}

// State of the text phase of one part.
type expander struct {
	ctx     Context
	quoting parse.Quoting
	// Alternatives built so far; a bare part may have many.
	results []frag
	// Text accumulated for a double-quoted part.
	sb strings.Builder
}

func expandPart(text string, q parse.Quoting, wordStart bool, ctx Context) ([]frag, error) {
	if q == parse.SingleQuoted {
		return []frag{{pattern: glob.Escape(text)}}, nil
	}
	ex := &expander{ctx: ctx, quoting: q, results: []frag{{}}}
	i := 0
	if q == parse.Bare && wordStart && strings.HasPrefix(text, "~") {
		i = ex.tilde(text)
	}
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\\':
			i = ex.escape(text, i)
		case c == '$':
			var err error
			i, err = ex.dollar(text, i)
			if err != nil {
				return nil, err
			}
		case q == parse.Bare && (c == '*' || c == '?' || c == '['):
			ex.meta(c)
			i++
		default:
			j := i + 1
			for j < len(text) && !strings.ContainsRune(`\$*?[`, rune(text[j])) {
				j++
			}
			ex.literal(text[i:j])
			i = j
		}
	}
	if q == parse.DoubleQuoted {
		return []frag{{pattern: glob.Escape(ex.sb.String())}}, nil
	}
	return ex.results, nil
}

func (ex *expander) literal(s string) {
	if ex.quoting == parse.DoubleQuoted {
		ex.sb.WriteString(s)
		return
	}
	for i := range ex.results {
		ex.results[i].pattern += glob.Escape(s)
	}
}

func (ex *expander) meta(c byte) {
	for i := range ex.results {
		ex.results[i].pattern += string(c)
		ex.results[i].meta = true
	}
}

// Adds a list value. In a bare part each element becomes an alternative, and
// wildcards in it take part in globbing; in a double-quoted part the elements
// are joined with spaces.
func (ex *expander) list(values []string) {
	if ex.quoting == parse.DoubleQuoted {
		ex.sb.WriteString(strings.Join(values, " "))
		return
	}
	frags := make([]frag, len(values))
	for i, v := range values {
		frags[i] = frag{pattern: strings.ReplaceAll(v, `\`, `\\`), meta: true}
	}
	ex.results = product(ex.results, frags)
}

func (ex *expander) tilde(text string) int {
	end := strings.IndexByte(text, '/')
	if end == -1 {
		end = len(text)
	}
	uname := text[1:end]
	if uname == "" {
		ex.literal(ex.ctx.Home())
		return end
	}
	for _, r := range uname {
		if !isUserNameRune(r) {
			return 0
		}
	}
	home, err := fsutil.GetHome(uname)
	if err != nil {
		// Unknown users are left alone.
		return 0
	}
	ex.literal(home)
	return end
}

func isUserNameRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' ||
		'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}

func (ex *expander) escape(text string, i int) int {
	if i+1 >= len(text) {
		ex.literal(`\`)
		return i + 1
	}
	c := text[i+1]
	switch c {
	case 'n':
		ex.literal("\n")
	case 't':
		ex.literal("\t")
	case '\\', '"', '$':
		ex.literal(string(c))
	default:
		if ex.quoting == parse.DoubleQuoted {
			ex.literal(text[i : i+2])
		} else {
			ex.literal(string(c))
		}
	}
	return i + 2
}

// Handles a "$" at text[i] and returns the position after what it consumed.
func (ex *expander) dollar(text string, i int) (int, error) {
	if i+1 >= len(text) {
		ex.literal("$")
		return i + 1, nil
	}
	switch c := text[i+1]; {
	case c == '(':
		end, ok := parse.FindSubstEnd(text, i)
		if !ok {
			return 0, fmt.Errorf("%w: unterminated $(", ErrBadSubstitution)
		}
		out, err := ex.ctx.Capture(text[i+2 : end-1])
		if err != nil {
			return 0, err
		}
		if ex.quoting == parse.DoubleQuoted {
			ex.literal(strings.TrimRight(string(out), "\n"))
		} else {
			ex.list(SplitLines(string(out)))
		}
		return end, nil
	case c == '{':
		end := strings.IndexByte(text[i:], '}')
		if end == -1 {
			return 0, fmt.Errorf("%w: unterminated ${", ErrBadSubstitution)
		}
		end += i
		name := text[i+2 : end]
		if !parse.IsIdentifier(name) {
			return 0, fmt.Errorf("%w: ${%s}", ErrBadSubstitution, name)
		}
		return ex.variable(text, name, end+1)
	case '1' <= c && c <= '9':
		argv := ex.get("argv")
		n := int(c - '0')
		if n <= len(argv) {
			ex.list(argv[n-1 : n])
		} else {
			ex.list(nil)
		}
		return i + 2, nil
	case c == '#':
		ex.literal(strconv.Itoa(len(ex.get("argv"))))
		return i + 2, nil
	case c == '*':
		return ex.variable(text, "argv", i+2)
	case c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		end := i + 1
		for end < len(text) && isNameByte(text[end]) {
			end++
		}
		return ex.variable(text, text[i+1:end], end)
	}
	ex.literal("$")
	return i + 1, nil
}

func isNameByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func (ex *expander) get(name string) []string {
	values, _ := ex.ctx.Get(name)
	return values
}

// Expands a variable reference whose name ends before text[i], including an
// optional index that follows.
func (ex *expander) variable(text, name string, i int) (int, error) {
	values := ex.get(name)
	if i < len(text) && text[i] == '[' {
		if end := strings.IndexByte(text[i:], ']'); end != -1 {
			end += i
			indexed, err := ex.index(values, text[i+1:end])
			if err != nil {
				return 0, err
			}
			ex.list(indexed)
			return end + 1, nil
		}
	}
	ex.list(values)
	return i, nil
}

// Applies an index or slice expression to a list. Indices are 1-based and
// negative ones count from the end. An out-of-range index yields an empty
// list, a slice is clamped to the list, and a slice whose start is after its
// end yields an empty list.
func (ex *expander) index(values []string, expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	n := len(values)
	from, to, isSlice := strings.Cut(expr, "..")
	if !isSlice {
		i, err := ex.indexValue(expr)
		if err != nil {
			return nil, err
		}
		i = normalizeIndex(i, n)
		if i < 1 || i > n {
			return []string{}, nil
		}
		return values[i-1 : i], nil
	}

	a, b := 1, n
	var err error
	if from = strings.TrimSpace(from); from != "" {
		if a, err = ex.indexValue(from); err != nil {
			return nil, err
		}
		a = normalizeIndex(a, n)
	}
	if to = strings.TrimSpace(to); to != "" {
		if b, err = ex.indexValue(to); err != nil {
			return nil, err
		}
		b = normalizeIndex(b, n)
	}
	if a < 1 {
		a = 1
	}
	if b > n {
		b = n
	}
	if a > b {
		return []string{}, nil
	}
	return values[a-1 : b], nil
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		return n + i + 1
	}
	return i
}

// Parses one end of an index expression, either an integer or a reference to
// a variable holding one.
func (ex *expander) indexValue(s string) (int, error) {
	if strings.HasPrefix(s, "$") {
		values := ex.get(s[1:])
		if len(values) != 1 {
			return 0, fmt.Errorf("%w: %s does not hold a single value", ErrBadIndex, s)
		}
		s = values[0]
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadIndex, s)
	}
	return i, nil
}
