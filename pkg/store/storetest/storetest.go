// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "src.lsh.sh/pkg/store/storedefs"
)

func matchErr(e1, e2 error) bool {
	return (e1 == nil && e2 == nil) || (e1 != nil && e2 != nil && e1.Error() == e2.Error())
}

// TestCmd tests the command history functionality of a Store.
func TestCmd(t *testing.T, store Store) {
	cmds := []string{"echo foo", "echo bar", "echo foo", "ls"}
	for i, cmd := range cmds {
		seq, err := store.AddCmd(cmd)
		if seq != i+1 || err != nil {
			t.Errorf("store.AddCmd(%q) -> %v, %v, want %v, nil", cmd, seq, err, i+1)
		}
	}

	all, err := store.CmdsWithSeq(0, -1)
	want := []Cmd{{Text: "echo foo", Seq: 1}, {Text: "echo bar", Seq: 2},
		{Text: "echo foo", Seq: 3}, {Text: "ls", Seq: 4}}
	if err != nil || !cmp.Equal(all, want, ignoreTime) {
		t.Errorf("store.CmdsWithSeq(0, -1) -> %v, %v, want %v, nil", all, err, want)
	}
	for _, cmd := range all {
		if cmd.Time.IsZero() {
			t.Errorf("entry %d has no time", cmd.Seq)
		}
	}
	some, err := store.CmdsWithSeq(2, 4)
	if err != nil || !cmp.Equal(some, want[1:3], ignoreTime) {
		t.Errorf("store.CmdsWithSeq(2, 4) -> %v, %v, want %v, nil", some, err, want[1:3])
	}

	if err := store.DelCmd(1); err != nil {
		t.Errorf("store.DelCmd(1) -> %v", err)
	}
	if err := store.DelCmd(1); !matchErr(err, ErrNoMatchingCmd) {
		t.Errorf("store.DelCmd(1) again -> %v, want %v", err, ErrNoMatchingCmd)
	}
	all, _ = store.CmdsWithSeq(0, -1)
	if !cmp.Equal(all, want[1:], ignoreTime) {
		t.Errorf("store.CmdsWithSeq(0, -1) after deletion -> %v", all)
	}

	// Sequence numbers are not reused.
	if seq, _ := store.AddCmd("pwd"); seq != 5 {
		t.Errorf("store.AddCmd after deletion -> %v, want 5", seq)
	}
}

var ignoreTime = cmpopts.IgnoreFields(Cmd{}, "Time")

// TestDir tests the directory history functionality of a Store.
func TestDir(t *testing.T, store Store) {
	for _, dir := range []string{"/usr/local", "/usr", "/usr/bin", "/usr"} {
		if err := store.AddDir(dir, 1); err != nil {
			t.Errorf("store.AddDir(%q) -> %v", dir, err)
		}
	}

	dirs, err := store.Dirs(NoBlacklist)
	if err != nil {
		t.Fatalf("store.Dirs() -> error %v", err)
	}
	var paths []string
	for _, dir := range dirs {
		paths = append(paths, dir.Path)
	}
	// "/usr" was added twice, and "/usr/bin" is more recent than
	// "/usr/local".
	wantPaths := []string{"/usr", "/usr/bin", "/usr/local"}
	if !cmp.Equal(paths, wantPaths) {
		t.Errorf("store.Dirs() -> %v, want %v", paths, wantPaths)
	}

	dirs, _ = store.Dirs(map[string]struct{}{"/usr": {}})
	if len(dirs) != 2 || dirs[0].Path != "/usr/bin" {
		t.Errorf("store.Dirs(blacklist) -> %v", dirs)
	}

	if err := store.DelDir("/usr"); err != nil {
		t.Errorf("store.DelDir(/usr) -> %v", err)
	}
	dirs, _ = store.Dirs(NoBlacklist)
	if len(dirs) != 2 {
		t.Errorf("store.Dirs() after deletion -> %v", dirs)
	}
}

// TestUniversalVar tests the universal variable functionality of a Store.
func TestUniversalVar(t *testing.T, store Store) {
	const name = "foo"

	if _, err := store.UniversalVar(name); err != ErrNoVar {
		t.Error("want ErrNoVar, got", err)
	}

	for _, values := range [][]string{{"bar"}, {"a b", "c\nd"}, {}} {
		if err := store.SetUniversalVar(name, values); err != nil {
			t.Errorf("store.SetUniversalVar(%q, %q) -> %v", name, values, err)
		}
		got, err := store.UniversalVar(name)
		if err != nil || !cmp.Equal(got, values) {
			t.Errorf("store.UniversalVar(%q) -> %q, %v, want %q, nil", name, got, err, values)
		}
	}

	store.SetUniversalVar("bar", []string{"x"})
	names, err := store.UniversalVarNames()
	if err != nil || !cmp.Equal(names, []string{"bar", "foo"}) {
		t.Errorf("store.UniversalVarNames() -> %v, %v", names, err)
	}

	if err := store.DelUniversalVar(name); err != nil {
		t.Error("Failed to delete variable:", err)
	}
	if _, err := store.UniversalVar(name); err != ErrNoVar {
		t.Error("want ErrNoVar, got", err)
	}
	if err := store.DelUniversalVar(name); err != ErrNoVar {
		t.Error("deleting again: want ErrNoVar, got", err)
	}
}
