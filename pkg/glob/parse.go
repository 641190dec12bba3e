package glob

import (
	"strings"
	"unicode/utf8"
)

// Parse parses a pattern. A backslash makes the following character literal.
// An unterminated bracket is taken literally.
func Parse(s string) Pattern {
	segments := []Segment{}
	add := func(seg Segment) {
		segments = append(segments, seg)
	}
	p := &parser{s, 0, 0}

rune:
	for {
		r := p.next()
		switch r {
		case eof:
			break rune
		case '?':
			add(Wild{Question})
		case '*':
			n := 1
			for p.next() == '*' {
				n++
			}
			p.backup()
			if n == 1 {
				add(Wild{Star})
			} else {
				add(Wild{StarStar})
			}
		case '/':
			for p.next() == '/' {
			}
			p.backup()
			add(Slash{})
		case '[':
			if class, ok := p.class(); ok {
				add(class)
				continue
			}
			r = '['
			fallthrough
		default:
			var literal strings.Builder
		literal:
			for {
				switch r {
				case '?', '*', '/', eof:
					break literal
				case '[':
					if literal.Len() > 0 {
						// Let the outer loop try it as a class.
						break literal
					}
					literal.WriteRune(r)
				case '\\':
					r = p.next()
					if r == eof {
						break literal
					}
					literal.WriteRune(r)
				default:
					literal.WriteRune(r)
				}
				r = p.next()
			}
			p.backup()
			add(Literal{literal.String()})
		}
	}
	return Pattern{mergeLiterals(segments)}
}

// HasWildcard returns whether the pattern contains any unescaped wildcard,
// that is, whether globbing it may yield anything other than itself.
func HasWildcard(s string) bool {
	for _, seg := range Parse(s).Segments {
		if matchesOneChar(seg) || IsWild(seg) {
			return true
		}
	}
	return false
}

// Unescape returns the literal text of a pattern with all escaping
// backslashes removed.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// Escape escapes all the characters in s that are special in patterns.
func Escape(s string) string {
	if !strings.ContainsAny(s, `*?[\`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func mergeLiterals(segs []Segment) []Segment {
	merged := segs[:0]
	for _, seg := range segs {
		if lit, ok := seg.(Literal); ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(Literal); ok {
				merged[len(merged)-1] = Literal{prev.Data + lit.Data}
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}

type parser struct {
	src     string
	pos     int
	overEOF int
}

const eof rune = -1

func (ps *parser) next() rune {
	if ps.pos == len(ps.src) {
		ps.overEOF++
		return eof
	}
	r, s := utf8.DecodeRuneInString(ps.src[ps.pos:])
	ps.pos += s
	return r
}

func (ps *parser) backup() {
	if ps.overEOF > 0 {
		ps.overEOF--
		return
	}
	_, s := utf8.DecodeLastRuneInString(ps.src[:ps.pos])
	ps.pos -= s
}

// class parses a bracket expression after the opening '['. On failure the
// position is restored and ok is false.
func (ps *parser) class() (c Class, ok bool) {
	start := ps.pos
	if r := ps.next(); r == '!' || r == '^' {
		c.Negated = true
	} else {
		ps.backup()
	}
	first := true
	for {
		r := ps.next()
		switch {
		case r == eof || r == '/':
			ps.pos, ps.overEOF = start, 0
			return Class{}, false
		case r == ']' && !first:
			return c, true
		case r == '\\':
			r = ps.next()
			if r == eof {
				ps.pos, ps.overEOF = start, 0
				return Class{}, false
			}
		}
		first = false
		lo, hi := r, r
		if ps.next() == '-' {
			if r2 := ps.next(); r2 != ']' && r2 != eof {
				hi = r2
			} else {
				ps.backup()
				ps.backup()
			}
		} else {
			ps.backup()
		}
		c.Ranges = append(c.Ranges, RuneRange{lo, hi})
	}
}
