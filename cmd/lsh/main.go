// Lsh is a shell with list-valued variables and POSIX job control. It runs
// scripts, code given with -c and interactive sessions.
package main

import (
	"os"

	"src.lsh.sh/pkg/buildinfo"
	"src.lsh.sh/pkg/prog"
	"src.lsh.sh/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program{}, shell.Program{})))
}
