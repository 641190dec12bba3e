package parse

import (
	"strings"
	"unicode"
)

// Quote returns a word that expands to exactly the given string. If s can
// appear as a bare word it is returned as is; otherwise it is quoted,
// preferring single quotes.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	bare := s[0] != '~'
	printable := true
	for _, r := range s {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			printable = false
		}
		if !allowedInBareword(r) {
			bare = false
		}
	}
	switch {
	case bare && printable:
		return s
	case printable && !strings.ContainsRune(s, '\''):
		return "'" + s + "'"
	}
	return quoteDouble(s)
}

func allowedInBareword(r rune) bool {
	return r > 0x7f && unicode.IsPrint(r) ||
		'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' ||
		strings.ContainsRune("-_./:@%+~^", r)
}

func quoteDouble(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"', '$':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
