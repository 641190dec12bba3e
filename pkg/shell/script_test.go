package shell

import (
	"testing"

	. "src.lsh.sh/pkg/prog/progtest"
	"src.lsh.sh/pkg/testutil"
)

func TestScript(t *testing.T) {
	setupCleanHomePaths(t)
	testutil.InTempDir(t)
	testutil.MustWriteFile("hello.lsh", "echo hello")
	testutil.MustWriteFile("args.lsh", "echo $# $1; echo $argv")
	testutil.MustWriteFile("status.lsh", "echo before\nexit 3\necho after\n")
	testutil.MustWriteFile("last.lsh", "true\nfalse\n")
	testutil.MustWriteFile("invalid-utf8.lsh", "\xff")

	Test(t, Program{},
		ThatLsh("hello.lsh").WritesStdout("hello\n"),
		ThatLsh("-c", "echo hello").WritesStdout("hello\n"),
		ThatLsh("args.lsh", "a", "b").WritesStdout("2 a\na b\n"),
		ThatLsh("-c", "echo $argv", "x", "y").WritesStdout("x y\n"),
		ThatLsh("status.lsh").ExitsWith(3).WritesStdout("before\n"),
		ThatLsh("last.lsh").ExitsWith(1),
		ThatLsh("-c", "nonexistent-command-lsh").
			ExitsWith(127).WritesStderrContaining("nonexistent-command-lsh"),

		ThatLsh("invalid-utf8.lsh").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),
		ThatLsh("non-existent.lsh").
			ExitsWith(2).
			WritesStderrContaining("cannot read script"),

		// parse error
		ThatLsh("-c", "echo 'abc").
			ExitsWith(2).
			WritesStderrContaining("unterminated single-quoted string"),
		// a parse error runs nothing
		ThatLsh("-c", "echo a; end").
			ExitsWith(2).
			WritesStderrContaining("unexpected end"),
		// parse error with -compileonly
		ThatLsh("-compileonly", "-c", "end").
			ExitsWith(2).
			WritesStderrContaining("unexpected end"),
		// parse error with -compileonly -json
		ThatLsh("-compileonly", "-json", "-c", "end").
			ExitsWith(2).
			WritesStdoutContaining(`[{"fileName":"code from -c","start":0,`),
		ThatLsh("-compileonly", "-json", "-c", "end").
			ExitsWith(2).
			WritesStdoutContaining(`"message":"unexpected end"}]`),
		ThatLsh("-compileonly", "-json", "-c", "echo ok").
			WritesStdout("[]\n"),
		// -compileonly does not run anything
		ThatLsh("-compileonly", "-c", "echo hello").DoesNothing(),
	)
}

func TestScript_Stdin(t *testing.T) {
	setupCleanHomePaths(t)

	Test(t, Program{},
		ThatLsh().WithStdin("echo from stdin\nset x 1 2\necho $x[2]\n").
			WritesStdout("from stdin\n2\n"),
		ThatLsh().WithStdin("false").ExitsWith(1),
		ThatLsh().WithStdin("if true\n").
			ExitsWith(2).WritesStderrContaining("unterminated if"),
		ThatLsh().WithStdin("\xff").
			ExitsWith(2).WritesStderrContaining("not UTF-8"),
	)
}
