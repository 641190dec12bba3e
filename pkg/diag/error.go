package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents an error with context that can be showed.
type Error struct {
	Type    string
	Message string
	Context Context
	// Whether the error happened at the end of the source. Set by the parser
	// so that front ends can tell an incomplete input from a bad one.
	Partial bool
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s:%s %s",
		e.Type, e.Context.Name, e.Context.lineRange(), e.Message)
}

// Range returns the range of the error.
func (e *Error) Range() Ranging {
	return e.Context.Range()
}

// Show shows the error.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("%s: \033[31;1m%s\033[m\n", title(e.Type), e.Message)
	return header + indent + "  " + e.Context.ShowCompact(indent+"  ")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UnpackErrors returns all the *Error values that err wraps, either directly or
// through an error returned by errutil.Multi.
func UnpackErrors(err error) []*Error {
	if err == nil {
		return nil
	}
	if unwrapper, ok := err.(interface{ Unwrap() []error }); ok {
		var errs []*Error
		for _, e := range unwrapper.Unwrap() {
			errs = append(errs, UnpackErrors(e)...)
		}
		return errs
	}
	var e *Error
	if errors.As(err, &e) {
		return []*Error{e}
	}
	return nil
}
