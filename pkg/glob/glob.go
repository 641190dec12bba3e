// Package glob implements globbing for lsh.
package glob

import (
	"os"
	"unicode/utf8"
)

// GlobIn calls cb with each file name satisfying the Pattern. Relative
// patterns are resolved against wd, or the working directory of the process
// when wd is empty; the file names passed to cb are still relative. Results
// are produced in directory order.
func (p Pattern) GlobIn(wd string, cb func(string) bool) bool {
	segs := p.Segments
	dir := ""
	if len(segs) > 0 && IsSlash(segs[0]) {
		segs = segs[1:]
		dir = "/"
		wd = ""
	}
	return glob(segs, wd, dir, cb)
}

// glob finds all filenames matching the given Segments in the given dir, and
// calls the callback on all of them. If the callback returns false, globbing is
// interrupted, and glob returns false. Otherwise it returns true.
func glob(segs []Segment, wd, dir string, cb func(string) bool) bool {
	// Consume non-wildcard path elements simply by following the path. This is
	// required for "." and ".." to be used as path elements, as they do not
	// appear in the result of ReadDir.
	for len(segs) > 1 && IsLiteral(segs[0]) && IsSlash(segs[1]) {
		elem := segs[0].(Literal).Data
		segs = segs[2:]
		dir += elem + "/"
		if info, err := os.Stat(join(wd, dir)); err != nil || !info.IsDir() {
			return true
		}
	}

	if len(segs) == 0 {
		return cb(dir)
	} else if len(segs) == 1 && IsLiteral(segs[0]) {
		path := dir + segs[0].(Literal).Data
		if _, err := os.Lstat(join(wd, path)); err == nil {
			return cb(path)
		}
		return true
	}

	infos, err := readDir(join(wd, dir))
	if err != nil {
		// Unreadable directories simply produce no matches.
		return true
	}

	i := -1
	// nexti moves i to the next index in segs that is either / or ** (in other
	// words, something that matches /).
	nexti := func() {
		for i++; i < len(segs); i++ {
			if IsSlash(segs[i]) || IsWild1(segs[i], StarStar) {
				break
			}
		}
	}
	nexti()

	// Enumerate the position of the first slash. In the presence of multiple
	// **'s in the pattern, the first slash may be in any of those.
	//
	// For instance, in x**y**z, the first slash may be in the first ** or the
	// second:
	// 1) If it is in the first, then pattern is equivalent to x*/**y**z. We
	//    match directories with x* and recurse in each subdirectory with the
	//    pattern **y**z.
	// 2) If it is the in the second, we know that since the first ** can no
	//    longer contain any slashes, we treat it as * (this is done in
	//    matchElement). The pattern is now equivalent to x*y*/**z. We match
	//    directories with x*y* and recurse in each subdirectory with the
	//    pattern **z.
	for i < len(segs) {
		slash := IsSlash(segs[i])
		var first, rest []Segment
		if slash {
			// segs = x/y. Match dir with x, recurse on y.
			first, rest = segs[:i], segs[i+1:]
		} else {
			// segs = x**y. Match dir with x*, recurse on **y.
			first, rest = segs[:i+1], segs[i:]
		}

		for _, info := range infos {
			name := info.Name()
			if matchElement(first, name) && info.IsDir() {
				if !glob(rest, wd, dir+name+"/", cb) {
					return false
				}
			}
		}

		if slash {
			// First slash cannot appear later than a slash in the pattern.
			return true
		}
		nexti()
	}

	// If we reach here, it is possible to have no slashes at all. Simply match
	// the entire pattern with all files.
	for _, info := range infos {
		name := info.Name()
		if matchElement(segs, name) {
			if !cb(dir + name) {
				return false
			}
		}
	}
	return true
}

func join(wd, dir string) string {
	switch {
	case dir == "" && wd == "":
		return "."
	case wd == "" || (dir != "" && dir[0] == '/'):
		return dir
	case dir == "":
		return wd
	default:
		return wd + "/" + dir
	}
}

func readDir(dir string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		// Stat instead of using the entry's info so that symlinks to
		// directories can be descended into.
		info, err := os.Stat(dir + "/" + entry.Name())
		if err != nil {
			info, err = entry.Info()
			if err != nil {
				continue
			}
		}
		infos = append(infos, renamed{info, entry.Name()})
	}
	return infos, nil
}

// renamed keeps the name of the directory entry when its FileInfo comes from
// following a symlink.
type renamed struct {
	os.FileInfo
	name string
}

func (r renamed) Name() string { return r.name }

// Match returns whether name, which must not contain any slash, matches
// pattern p in its entirety.
func (p Pattern) Match(name string) bool {
	return matchElement(p.Segments, name)
}

// matchElement matches a path element against segments, which may not contain
// any Slash segments. It treats StarStar segments as they are Star segments.
func matchElement(segs []Segment, name string) bool {
	if len(segs) == 0 {
		return name == ""
	}
	// If the name start with "." and the first segment is not a literal, it
	// only matches when the dot is explicitly given.
	if len(name) > 0 && name[0] == '.' && (IsWild(segs[0]) || matchesOneChar(segs[0])) {
		return false
	}
segs:
	for len(segs) > 0 {
		// Find a chunk. A chunk is an optional Star followed by a run of
		// fixed-length segments (Literal, Question and Class).
		var i int
		for i = 1; i < len(segs); i++ {
			if IsWild2(segs[i], Star, StarStar) {
				break
			}
		}

		chunk := segs[:i]
		startsWithStar := IsWild2(chunk[0], Star, StarStar)
		if startsWithStar {
			chunk = chunk[1:]
		}
		segs = segs[i:]

		// Match at the current position. If this is the last chunk, we need to
		// make sure name is exhausted by the matching.
		ok, rest := matchFixedLength(chunk, name)
		if ok && (rest == "" || len(segs) > 0) {
			name = rest
			continue
		}

		if startsWithStar {
			for i, r := range name {
				j := i + len(string(r))
				// Match name[:j] with the starting *, and the rest with chunk.
				ok, rest := matchFixedLength(chunk, name[j:])
				if ok && (rest == "" || len(segs) > 0) {
					name = rest
					continue segs
				}
			}
		}
		return false
	}
	return name == ""
}

// matchFixedLength returns whether a run of fixed-length segments (Literal,
// Question and Class) matches a prefix of name. It returns whether the match
// is successful and if if it is, the remaining part of name.
func matchFixedLength(segs []Segment, name string) (bool, string) {
	for _, seg := range segs {
		if name == "" {
			return false, ""
		}
		switch seg := seg.(type) {
		case Literal:
			n := len(seg.Data)
			if len(name) < n || name[:n] != seg.Data {
				return false, ""
			}
			name = name[n:]
		case Wild:
			if seg.Type == Question {
				_, n := utf8.DecodeRuneInString(name)
				name = name[n:]
			} else {
				panic("matchFixedLength given non-question wild segment")
			}
		case Class:
			r, n := utf8.DecodeRuneInString(name)
			if !seg.Match(r) {
				return false, ""
			}
			name = name[n:]
		default:
			panic("matchFixedLength given non-literal non-wild segment")
		}
	}
	return true, name
}
