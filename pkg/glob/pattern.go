package glob

// Pattern is a glob pattern.
type Pattern struct {
	Segments []Segment
}

// Segment is the building block of Pattern.
type Segment interface {
	isSegment()
}

// Slash represents a slash "/".
type Slash struct{}

// Literal is a series of non-slash, non-wildcard characters, that is to be
// matched literally.
type Literal struct {
	Data string
}

// Wild is a wildcard.
type Wild struct {
	Type WildType
}

// WildType is the type of a Wild.
type WildType int

// Values for WildType.
const (
	Question WildType = iota
	Star
	StarStar
)

// Class is a bracket expression matching exactly one character, like [abc],
// [a-z] or [!0-9].
type Class struct {
	Ranges  []RuneRange
	Negated bool
}

// RuneRange is an inclusive range of runes inside a Class. A single character
// is represented by a range whose ends are equal.
type RuneRange struct {
	Lo, Hi rune
}

func (Slash) isSegment()   {}
func (Literal) isSegment() {}
func (Wild) isSegment()    {}
func (Class) isSegment()   {}

// Match returns whether the Class matches r.
func (c Class) Match(r rune) bool {
	for _, rg := range c.Ranges {
		if rg.Lo <= r && r <= rg.Hi {
			return !c.Negated
		}
	}
	return c.Negated
}

// IsSlash returns whether a Segment is a Slash.
func IsSlash(seg Segment) bool {
	_, ok := seg.(Slash)
	return ok
}

// IsLiteral returns whether a Segment is a Literal.
func IsLiteral(seg Segment) bool {
	_, ok := seg.(Literal)
	return ok
}

// IsWild returns whether a Segment is a Wild.
func IsWild(seg Segment) bool {
	_, ok := seg.(Wild)
	return ok
}

// IsWild1 returns whether a Segment is a Wild and has the specified type.
func IsWild1(seg Segment, t WildType) bool {
	return IsWild(seg) && seg.(Wild).Type == t
}

// IsWild2 returns whether a Segment is a Wild and has one of the two specified
// types.
func IsWild2(seg Segment, t1, t2 WildType) bool {
	return IsWild(seg) && (seg.(Wild).Type == t1 || seg.(Wild).Type == t2)
}

// matchesOneChar returns whether a Segment matches exactly one character
// that is not fixed in advance.
func matchesOneChar(seg Segment) bool {
	if _, ok := seg.(Class); ok {
		return true
	}
	return IsWild1(seg, Question)
}
