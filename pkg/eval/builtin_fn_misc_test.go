package eval_test

import (
	"testing"

	. "src.lsh.sh/pkg/eval"
	. "src.lsh.sh/pkg/eval/evaltest"
	"src.lsh.sh/pkg/store"
	"src.lsh.sh/pkg/testutil"
)

func TestSource(t *testing.T) {
	testutil.InTempDir(t)
	testutil.MustWriteFile("lib.lsh", "set from_lib yes\nfn hello; echo hello $argv; end\n")
	testutil.MustWriteFile("early.lsh", "echo before\nreturn 3\necho after\n")
	testutil.MustWriteFile("bad.lsh", "if true\n")
	testutil.MustMkdirAll("sub")
	testutil.MustWriteFile("sub/rel.lsh", "echo rel\n")

	Test(t,
		That("source lib.lsh; echo $from_lib; hello world").Prints("yes\nhello world\n"),
		That("source early.lsh").Prints("before\n").ExitsWith(3),
		That("source early.lsh; echo next").Prints("before\nnext\n"),
		That("source bad.lsh").ExitsWith(1).PrintsStderrWith("unterminated if"),
		That("source nonexistent.lsh").ExitsWith(1).PrintsStderrWith("no such file"),
		That("cd sub; source rel.lsh").Prints("rel\n"),
		That("source").ExitsWith(2).PrintsStderrWith("exactly one argument"),
	)
}

func TestType(t *testing.T) {
	Test(t,
		That("type echo").Prints("echo is a builtin\n"),
		That("fn f; end; type f").Prints("f is a function\n"),
		That("alias ll ls -l; type ll").Prints("ll is an alias for ls -l\n"),
		That("set PATH /bin; type sh").Prints("sh is /bin/sh\n"),
		That("type nonexistent-command-lsh").ExitsWith(1).PrintsStderrWith("not found"),
		That("type echo nonexistent-command-lsh").Prints("echo is a builtin\n").
			ExitsWith(1).PrintsStderrWith("not found"),
		That("type").ExitsWith(2),
	)
}

func TestHistory(t *testing.T) {
	st := store.MustTempStore(t)
	for _, cmd := range []string{"echo 1", "echo 2", "echo 3"} {
		st.AddCmd(cmd)
	}

	TestWithSetup(t, func(ev *Evaler) { ev.Store = st },
		That("history").Prints("    1  echo 1\n    2  echo 2\n    3  echo 3\n"),
		That("history 2").Prints("    2  echo 2\n    3  echo 3\n"),
		That("history 0").DoesNothing(),
		That("history x").ExitsWith(2).PrintsStderrWith("bad count"),
		That("history -d x").ExitsWith(2).PrintsStderrWith("bad sequence number"),
		That("history -d").ExitsWith(2).PrintsStderrWith("missing argument for -d"),
		That("history -d 9").ExitsWith(1).PrintsStderrWith("no matching command line"),
		That("history -d 2; history").Prints("    1  echo 1\n    3  echo 3\n"),
	)
	Test(t,
		That("history").ExitsWith(1).PrintsStderrWith("no store available"),
	)
}

func TestEcho(t *testing.T) {
	Test(t,
		That("echo").Prints("\n"),
		That("echo a  b").Prints("a b\n"),
		That("echo -n a").Prints("a"),
		That(`echo "a  b"`).Prints("a  b\n"),
	)
}

func TestCount(t *testing.T) {
	Test(t,
		That("count a b c").Prints("3\n"),
		That("count").Prints("0\n").ExitsWith(1),
		That("set l x y; count $l $l").Prints("4\n"),
	)
}

func TestTrueFalse(t *testing.T) {
	Test(t,
		That("true").DoesNothing(),
		That("false").ExitsWith(1),
		That("true | false").ExitsWith(1),
	)
}
