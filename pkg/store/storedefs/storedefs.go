// Package storedefs defines the API of the persistent store, so that users of
// the API need not import the bbolt-backed implementation.
package storedefs

import (
	"errors"
	"time"
)

// NoBlacklist is an empty blacklist, to be used in Dirs.
var NoBlacklist = map[string]struct{}{}

// ErrNoMatchingCmd is returned when a history entry does not exist.
var ErrNoMatchingCmd = errors.New("no matching command line")

// ErrNoVar is returned by UniversalVar when there is no such variable.
var ErrNoVar = errors.New("no such variable")

// Store is satisfied by the storage service.
type Store interface {
	AddCmd(text string) (int, error)
	DelCmd(seq int) error
	CmdsWithSeq(from, upto int) ([]Cmd, error)

	AddDir(dir string, incFactor float64) error
	DelDir(dir string) error
	Dirs(blacklist map[string]struct{}) ([]Dir, error)

	UniversalVar(name string) ([]string, error)
	SetUniversalVar(name string, values []string) error
	DelUniversalVar(name string) error
	UniversalVarNames() ([]string, error)

	Close() error
}

// Dir is an entry in the directory history.
type Dir struct {
	Path  string
	Score float64
}

// Cmd is an entry in the command history.
type Cmd struct {
	Text string
	Seq  int
	// When the command was entered.
	Time time.Time
}
