package state

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is a serializable copy of a State. It is used to hand the state
// to a re-executed shell process that runs a builtin or function as part of a
// pipeline.
type Snapshot struct {
	Scopes      []ScopeSnapshot      `yaml:"scopes"`
	Exported    []string             `yaml:"exported"`
	Aliases     map[string]string    `yaml:"aliases"`
	Functions   map[string]*Function `yaml:"functions"`
	Cwd         string               `yaml:"cwd"`
	PrevDir     string               `yaml:"prev-dir"`
	Home        string               `yaml:"home"`
	Status      uint8                `yaml:"status"`
	Interactive bool                 `yaml:"interactive"`
}

// ScopeSnapshot is the serializable form of one scope.
type ScopeSnapshot struct {
	Kind   ScopeKind           `yaml:"kind"`
	Parent ScopeID             `yaml:"parent"`
	Vars   map[string][]string `yaml:"vars"`
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		Exported:    sortedKeys(s.exported),
		Aliases:     map[string]string{},
		Functions:   map[string]*Function{},
		Cwd:         s.cwd,
		PrevDir:     s.prevDir,
		Home:        s.home,
		Status:      s.status,
		Interactive: s.Interactive,
	}
	for _, sc := range s.scopes {
		vars := make(map[string][]string, len(sc.Vars))
		for name, values := range sc.Vars {
			vars[name] = copyList(values)
		}
		snap.Scopes = append(snap.Scopes, ScopeSnapshot{sc.Kind, sc.Parent, vars})
	}
	for name, value := range s.aliases {
		snap.Aliases[name] = value
	}
	for name, fn := range s.functions {
		fnCopy := *fn
		snap.Functions[name] = &fnCopy
	}
	return snap
}

// Restore creates a State from a snapshot.
func Restore(snap *Snapshot) *State {
	s := &State{
		Interactive: snap.Interactive,
		exported:    map[string]bool{},
		aliases:     map[string]string{},
		functions:   map[string]*Function{},
		cwd:         snap.Cwd,
		prevDir:     snap.PrevDir,
		home:        snap.Home,
		status:      snap.Status,
	}
	for _, sc := range snap.Scopes {
		vars := map[string][]string{}
		for name, values := range sc.Vars {
			vars[name] = copyList(values)
		}
		s.scopes = append(s.scopes, &scope{sc.Kind, sc.Parent, vars})
	}
	if len(s.scopes) == 0 {
		s.scopes = []*scope{{Kind: GlobalScope, Vars: map[string][]string{}}}
	}
	for _, name := range snap.Exported {
		s.exported[name] = true
	}
	for name, value := range snap.Aliases {
		s.aliases[name] = value
	}
	for name, fn := range snap.Functions {
		s.functions[name] = fn
	}
	return s
}

// Encode writes a snapshot to w.
func Encode(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(snap); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
