package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTempDir_DirIsValid(t *testing.T) {
	dir := TempDir(t)

	stat, err := os.Stat(dir)
	if err != nil {
		t.Errorf("TempDir returns %q which cannot be stated", dir)
	}
	if !stat.IsDir() {
		t.Errorf("TempDir returns %q which is not a dir", dir)
	}
}

func TestTempDir_CleanupRemovesDirRecursively(t *testing.T) {
	c := &cleanuper{}
	dir := TempDir(c)

	MustWriteFile(filepath.Join(dir, "a"), "test")

	c.runCleanups()
	if _, err := os.Stat(dir); err == nil {
		t.Errorf("Dir %q still exists after cleanup", dir)
	}
}

func TestInTempDir(t *testing.T) {
	original, _ := os.Getwd()

	c := &cleanuper{}
	dir := InTempDir(c)
	if wd, _ := os.Getwd(); wd != dir {
		t.Errorf("working directory %q, want %q", wd, dir)
	}

	c.runCleanups()
	if wd, _ := os.Getwd(); wd != original {
		t.Errorf("working directory after cleanup %q, want %q", wd, original)
	}
}

func TestApplyDir(t *testing.T) {
	InTempDir(t)

	ApplyDir(Dir{
		"foo": "foo content",
		"bar": File{0755, "bar content"},
		"d": Dir{
			"a": "a content",
		},
	})

	got := map[string]string{}
	for _, name := range []string{"foo", "bar", "d/a"} {
		got[name] = MustReadFile(name)
	}
	want := map[string]string{"foo": "foo content", "bar": "bar content", "d/a": "a content"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("file contents (-want +got):\n%s", diff)
	}
	if stat, _ := os.Stat("bar"); stat.Mode().Perm() != 0755 {
		t.Errorf("bar has mode %v, want 0755", stat.Mode().Perm())
	}
}

type cleanuper struct{ fns []func() }

func (c *cleanuper) Cleanup(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanuper) runCleanups() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}
