package expand

import (
	"strings"

	"src.lsh.sh/pkg/parse"
)

// Braces performs brace expansion on the raw text of a bare word part.
// "{a,b}" yields one alternative per comma-separated item and groups nest.
// "{}" stays literal, "{a}" becomes "a", and the braces of "${...}" and the
// contents of "$(...)" are never treated as groups. Escaped braces and commas
// are literal.
func Braces(text string) []string {
	return braces(text, 0)
}

func braces(text string, from int) []string {
	open, close, commas := findGroup(text, from)
	if open == -1 {
		return []string{text}
	}
	if close == open+1 {
		// "{}" is literal.
		return braces(text, close+1)
	}
	prefix, suffix := text[:open], text[close+1:]
	var items []string
	begin := open + 1
	for _, comma := range append(commas, close) {
		items = append(items, text[begin:comma])
		begin = comma + 1
	}
	var results []string
	for _, item := range items {
		// The prefix has no groups left; rescan from the item.
		results = append(results, braces(prefix+item+suffix, len(prefix))...)
	}
	return results
}

// Finds the first complete brace group at or after from. It returns the
// positions of the opening and closing braces and of the top-level commas, or
// -1 for open if there is no group.
func findGroup(text string, from int) (open, close int, commas []int) {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '$':
			i = skipDollar(text, i)
		case '{':
			if close, commas, ok := matchGroup(text, i); ok {
				return i, close, commas
			}
		}
	}
	return -1, -1, nil
}

func matchGroup(text string, open int) (int, []int, bool) {
	depth := 0
	var commas []int
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '$':
			i = skipDollar(text, i)
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, commas, true
			}
		case ',':
			if depth == 1 {
				commas = append(commas, i)
			}
		}
	}
	return -1, nil, false
}

// Skips "$(...)" or "${...}" starting at text[i], returning the position of
// its last byte.
func skipDollar(text string, i int) int {
	switch {
	case strings.HasPrefix(text[i:], "$("):
		if end, ok := parse.FindSubstEnd(text, i); ok {
			return end - 1
		}
		return len(text) - 1
	case strings.HasPrefix(text[i:], "${"):
		if end := strings.IndexByte(text[i:], '}'); end != -1 {
			return i + end
		}
	}
	return i
}
