package fsutil

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.lsh.sh/pkg/testutil"
	"src.lsh.sh/pkg/tt"
)

func TestSearch(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{
		"bin1": testutil.Dir{
			"prog":  testutil.File{Perm: 0755, Content: ""},
			"plain": "",
		},
		"bin2": testutil.Dir{
			"prog":  testutil.File{Perm: 0755, Content: ""},
			"other": testutil.File{Perm: 0755, Content: ""},
		},
	})
	dirs := []string{"bin1", filepath.Join(dir, "bin2")}

	tt.Test(t, tt.Fn("Search", Search), tt.Table{
		tt.Args("prog", dir, dirs).Rets(filepath.Join(dir, "bin1", "prog"), nil),
		tt.Args("other", dir, dirs).Rets(filepath.Join(dir, "bin2", "other"), nil),
		tt.Args("plain", dir, dirs).Rets("", ErrNotExecutable),
		tt.Args("missing", dir, dirs).Rets("", ErrNotFound),
		tt.Args("./bin1/prog", dir, dirs).Rets(filepath.Join(dir, "bin1", "prog"), nil),
		tt.Args("bin1/plain", dir, dirs).Rets(filepath.Join(dir, "bin1", "plain"), ErrNotExecutable),
	})
}

func TestEachExternal(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{
		"bin": testutil.Dir{
			"a":   testutil.File{Perm: 0755, Content: ""},
			"b":   testutil.File{Perm: 0755, Content: ""},
			"c":   "",
			"sub": testutil.Dir{},
		},
	})
	var names []string
	EachExternal([]string{"bin", "nonexistent"}, func(s string) { names = append(names, s) })
	sort.Strings(names)
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("EachExternal (-want +got):\n%s", diff)
	}
}

func TestTildeAbbr(t *testing.T) {
	tt.Test(t, tt.Fn("TildeAbbr", TildeAbbr), tt.Table{
		tt.Args("/home/u", "/home/u").Rets("~"),
		tt.Args("/home/u/src", "/home/u").Rets("~/src"),
		tt.Args("/home/uu", "/home/u").Rets("/home/uu"),
		tt.Args("/x", "/").Rets("/x"),
	})
}

func TestGetHome_UsesHOME(t *testing.T) {
	testutil.Setenv(t, "HOME", "/some/home")
	home, err := GetHome("")
	if home != "/some/home" || err != nil {
		t.Errorf("GetHome(\"\") -> %q, %v", home, err)
	}
}
