package state

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.lsh.sh/pkg/testutil"
)

func TestNew_ImportsEnvironment(t *testing.T) {
	s := New([]string{"FOO=bar baz", "PATH=/bin:/usr/bin", "EMPTYPATH=", "bad"})

	if v, _ := s.Get("FOO"); !cmp.Equal(v, []string{"bar baz"}) {
		t.Errorf("FOO = %q", v)
	}
	if v, _ := s.Get("PATH"); !cmp.Equal(v, []string{"/bin", "/usr/bin"}) {
		t.Errorf("PATH = %q", v)
	}
	if v, ok := s.Get("EMPTYPATH"); !ok || v == nil || len(v) != 0 {
		t.Errorf("EMPTYPATH = %q, %v; want empty non-nil list", v, ok)
	}
	if !s.IsExported("FOO") {
		t.Errorf("FOO not exported")
	}
	if v, _ := s.Get("status"); !cmp.Equal(v, []string{"0"}) {
		t.Errorf("status = %q", v)
	}
}

func TestSet_UpdatesDefiningScope(t *testing.T) {
	s := New(nil)
	s.Set("x", []string{"global"})

	s.PushScope(BlockScope)
	s.Set("x", []string{"updated"})
	s.Set("y", []string{"local"})
	s.PopScope()

	if v, _ := s.Get("x"); !cmp.Equal(v, []string{"updated"}) {
		t.Errorf("x = %q, want updated", v)
	}
	if _, ok := s.Get("y"); ok {
		t.Errorf("y leaked out of block scope")
	}
}

func TestSetLocal_Shadows(t *testing.T) {
	s := New(nil)
	s.Set("x", []string{"outer"})
	s.PushScope(BlockScope)
	s.SetLocal("x", []string{"inner"})
	if v, _ := s.Get("x"); !cmp.Equal(v, []string{"inner"}) {
		t.Errorf("x = %q, want inner", v)
	}
	s.PopScope()
	if v, _ := s.Get("x"); !cmp.Equal(v, []string{"outer"}) {
		t.Errorf("x = %q, want outer", v)
	}
}

func TestFunctionScope_DoesNotSeeCaller(t *testing.T) {
	s := New(nil)
	s.Set("g", []string{"global"})
	s.PushScope(BlockScope)
	s.SetLocal("callerLocal", []string{"x"})

	s.PushScope(FunctionScope)
	if _, ok := s.Get("callerLocal"); ok {
		t.Errorf("function scope sees local of caller")
	}
	if _, ok := s.Get("g"); !ok {
		t.Errorf("function scope does not see global")
	}
	s.PopScope()

	if _, ok := s.Get("callerLocal"); !ok {
		t.Errorf("caller scope not restored after pop")
	}
	if s.Depth() != 1 {
		t.Errorf("depth = %d, want 1", s.Depth())
	}
	s.ResetScopes()
	if s.Depth() != 0 {
		t.Errorf("depth after reset = %d, want 0", s.Depth())
	}
}

func TestSet_NilBecomesEmpty(t *testing.T) {
	s := New(nil)
	s.Set("x", nil)
	if v, ok := s.Get("x"); !ok || v == nil {
		t.Errorf("x = %#v, %v; want empty non-nil list", v, ok)
	}
}

func TestErase(t *testing.T) {
	s := New(nil)
	s.Set("x", []string{"a"})
	if !s.Erase("x") {
		t.Errorf("Erase returned false for existing variable")
	}
	if s.Erase("x") {
		t.Errorf("Erase returned true for missing variable")
	}
}

func TestEnviron(t *testing.T) {
	s := New([]string{"A=1", "PATH=/a:/b"})
	s.Set("list", []string{"x", "y"})
	s.Export("list")
	s.Set("hidden", []string{"h"})

	got := s.Environ([]string{"A=2", "NEW=n"})
	want := map[string]bool{
		"A=2": true, "PATH=/a:/b": true, "list=x y": true, "NEW=n": true,
	}
	seenA := 0
	for _, kv := range got {
		if kv == "hidden=h" {
			t.Errorf("unexported variable in environ")
		}
		if kv[:2] == "A=" {
			seenA++
		}
		delete(want, kv)
	}
	if len(want) > 0 {
		t.Errorf("missing from environ: %v (got %q)", want, got)
	}
	if seenA != 1 {
		t.Errorf("A appears %d times, want 1", seenA)
	}
}

func TestAliasesAndFunctions(t *testing.T) {
	s := New(nil)
	s.SetAlias("ll", "ls -l")
	s.SetAlias("la", "ls -a")
	if v, ok := s.Alias("ll"); !ok || v != "ls -l" {
		t.Errorf("Alias(ll) = %q, %v", v, ok)
	}
	if got := s.AliasNames(); !cmp.Equal(got, []string{"la", "ll"}) {
		t.Errorf("AliasNames = %q", got)
	}
	if !s.RemoveAlias("ll") || s.RemoveAlias("ll") {
		t.Errorf("RemoveAlias misbehaves")
	}

	s.SetFunction(&Function{Name: "f", Body: "echo f"})
	if fn, ok := s.Function("f"); !ok || fn.Body != "echo f" {
		t.Errorf("Function(f) = %v, %v", fn, ok)
	}
	if got := s.FunctionNames(); !cmp.Equal(got, []string{"f"}) {
		t.Errorf("FunctionNames = %q", got)
	}
	if !s.RemoveFunction("f") {
		t.Errorf("RemoveFunction returned false")
	}
}

func TestChdir(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.MustMkdirAll("d")
	s := New(nil)

	if err := s.Chdir("d"); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "d")
	if s.Cwd() != want {
		t.Errorf("Cwd = %q, want %q", s.Cwd(), want)
	}
	if wd, _ := os.Getwd(); wd != want {
		t.Errorf("process wd = %q, want %q", wd, want)
	}
	if v, _ := s.Get("PWD"); !cmp.Equal(v, []string{want}) {
		t.Errorf("PWD = %q", v)
	}
	if err := s.ChdirPrev(); err != nil {
		t.Fatal(err)
	}
	if s.Cwd() != dir || s.PrevDir() != want {
		t.Errorf("after ChdirPrev: cwd %q prev %q", s.Cwd(), s.PrevDir())
	}
	if err := s.Chdir("nonexistent"); err == nil {
		t.Errorf("Chdir to nonexistent dir succeeded")
	}
}

func TestChdirPrev_NoPrevDir(t *testing.T) {
	s := New(nil)
	if err := s.ChdirPrev(); err != ErrNoPrevDir {
		t.Errorf("got %v, want ErrNoPrevDir", err)
	}
}

func TestSetStatus(t *testing.T) {
	s := New(nil)
	s.SetStatus(42)
	if s.Status() != 42 {
		t.Errorf("Status = %d", s.Status())
	}
	if v, _ := s.Get("status"); !cmp.Equal(v, []string{"42"}) {
		t.Errorf("$status = %q", v)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s := New([]string{"HOME=/home/u"})
	s.Interactive = true
	s.Set("x", []string{"a", "b"})
	s.Set("empty", []string{})
	s.PushScope(FunctionScope)
	s.SetLocal("argv", []string{"1"})
	s.SetAlias("ll", "ls -l")
	s.SetFunction(&Function{Name: "f", Params: []string{"a"}, Body: "echo $a"})
	s.SetStatus(3)

	var buf bytes.Buffer
	if err := Encode(&buf, s.Snapshot()); err != nil {
		t.Fatal(err)
	}
	snap, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r := Restore(snap)

	if diff := cmp.Diff(s.Snapshot(), r.Snapshot()); diff != "" {
		t.Errorf("restored state differs (-want +got):\n%s", diff)
	}
	if v, ok := r.Get("argv"); !ok || !cmp.Equal(v, []string{"1"}) {
		t.Errorf("argv = %q, %v", v, ok)
	}
	if v, ok := r.Get("empty"); !ok || v == nil {
		t.Errorf("empty = %#v, %v", v, ok)
	}
	if r.Home() != "/home/u" || !r.Interactive || r.Status() != 3 {
		t.Errorf("restored state %v lost fields", r)
	}

	// Mutating the restored state does not affect the original.
	r.Set("x", []string{"changed"})
	if v, _ := s.Get("x"); !cmp.Equal(v, []string{"a", "b"}) {
		t.Errorf("original x = %q", v)
	}
}
