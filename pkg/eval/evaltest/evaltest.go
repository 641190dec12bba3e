// Package evaltest provides a framework for testing lsh code.
//
// The entry point for the framework is the Test function, which accepts a
// *testing.T and any number of test cases.
//
// Test cases are constructed using the That function, followed by method calls
// that add additional information to it.
//
// Example:
//
//	Test(t,
//	    That("echo x").Prints("x\n"),
//	    That("false").ExitsWith(1))
//
// If some setup is needed, use the TestWithSetup function instead.
//
// Since pipelines re-execute the test binary, a package using this framework
// must call eval.RunForked at the start of its TestMain.
package evaltest

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/testutil"
)

// Case is a test case that can be used in Test.
type Case struct {
	codes  []string
	setup  func(ev *eval.Evaler)
	verify func(t *testing.T, ev *eval.Evaler)
	want   result
}

type result struct {
	Out       []byte
	StderrOut []byte
	Status    uint8

	ParseError bool
}

// That returns a new Case with the specified source code. Multiple arguments
// are joined with newlines. To specify multiple pieces of code that are
// executed separately, use the Then method to append code pieces.
//
// When combined with subsequent method calls, a test case reads like English.
// For example, a test for the fact that "echo x" prints "x" reads:
//
//	That("echo x").Prints("x\n")
func That(lines ...string) Case {
	return Case{codes: []string{strings.Join(lines, "\n")}}
}

// Then returns a new Case that executes the given code in addition. Multiple
// arguments are joined with newlines.
func (c Case) Then(lines ...string) Case {
	c.codes = append(c.codes, strings.Join(lines, "\n"))
	return c
}

// WithSetup returns a new Case with the given setup function executed on the
// Evaler before the code is executed.
func (c Case) WithSetup(f func(*eval.Evaler)) Case {
	c.setup = f
	return c
}

// DoesNothing returns c unchanged. It is useful to mark tests that don't have
// any side effects, for example:
//
//	That("true").DoesNothing()
func (c Case) DoesNothing() Case {
	return c
}

// Passes returns an altered Case that runs an additional verification
// function after the code has been executed.
func (c Case) Passes(f func(t *testing.T, ev *eval.Evaler)) Case {
	c.verify = f
	return c
}

// Prints returns an altered Case that requires the code to write the
// specified output to stdout.
func (c Case) Prints(s string) Case {
	c.want.Out = []byte(s)
	return c
}

// PrintsStderrWith returns an altered Case that requires the stderr output to
// contain the given text.
func (c Case) PrintsStderrWith(s string) Case {
	c.want.StderrOut = []byte(s)
	return c
}

// ExitsWith returns an altered Case that requires the status after the last
// piece of code to be the given one. Without this the status must be 0.
func (c Case) ExitsWith(status uint8) Case {
	c.want.Status = status
	return c
}

// DoesNotParse returns an altered Case that requires the last piece of code
// to fail parsing.
func (c Case) DoesNotParse() Case {
	c.want.ParseError = true
	c.want.Status = 1
	return c
}

// Test runs test cases. For each test case, a new Evaler is created with
// NewEvaler.
func Test(t *testing.T, tests ...Case) {
	t.Helper()
	TestWithSetup(t, func(*eval.Evaler) {}, tests...)
}

// TestWithSetup runs test cases. For each test case, a new Evaler is created
// with NewEvaler and passed to the setup function.
func TestWithSetup(t *testing.T, setup func(*eval.Evaler), tests ...Case) {
	t.Helper()
	for _, tc := range tests {
		t.Run(strings.Join(tc.codes, "\n"), func(t *testing.T) {
			t.Helper()
			// cd changes the working directory of the process.
			if wd, err := os.Getwd(); err == nil {
				defer os.Chdir(wd)
			}
			ev := eval.NewEvaler()
			setup(ev)
			if tc.setup != nil {
				tc.setup(ev)
			}

			r := evalAndCollect(t, ev, tc.codes)

			if tc.verify != nil {
				tc.verify(t, ev)
			}
			if tc.want.Out == nil {
				tc.want.Out = []byte{}
			}
			if !bytes.Equal(tc.want.Out, r.Out) {
				t.Errorf("got stdout %q, want %q", r.Out, tc.want.Out)
			}
			if tc.want.StderrOut == nil {
				if len(r.StderrOut) > 0 && !tc.want.ParseError {
					t.Errorf("got stderr out %q, want empty", r.StderrOut)
				}
			} else if !bytes.Contains(r.StderrOut, tc.want.StderrOut) {
				t.Errorf("got stderr out %q, want output containing %q",
					r.StderrOut, tc.want.StderrOut)
			}
			if r.Status != tc.want.Status {
				t.Errorf("got status %d, want %d", r.Status, tc.want.Status)
			}
			if r.ParseError != tc.want.ParseError {
				t.Errorf("got parse error %v, want %v", r.ParseError, tc.want.ParseError)
			}
		})
	}
}

func evalAndCollect(t *testing.T, ev *eval.Evaler, texts []string) result {
	var r result

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer stdin.Close()
	stdout, collectOut := capture()
	stderr, collectErr := capture()
	ev.SetPorts([3]*os.File{stdin, stdout, stderr})

	for _, text := range texts {
		status, err := ev.Execute(parse.Source{Name: "[test]", Code: text})
		r.Status = status
		// Only the last piece of code decides whether there is a parse error.
		r.ParseError = parse.GetError(err) != nil
		if err != nil && !r.ParseError {
			t.Errorf("Execute(%q) error: %v", text, err)
		}
		if _, exited := ev.Exited(); exited {
			break
		}
	}

	killJobs(ev)
	r.Out = collectOut()
	r.StderrOut = collectErr()
	return r
}

// Kills jobs left running, since they would keep the output pipes open.
func killJobs(ev *eval.Evaler) {
	for _, info := range ev.Jobs.List() {
		unix.Kill(-info.Pgid, unix.SIGKILL)
		if j, ok := ev.Jobs.Get(info.ID); ok {
			ev.Jobs.Wait(j, -1)
		}
	}
}

// Returns the write end of a pipe, and a function that closes it and returns
// everything written to it.
func capture() (*os.File, func() []byte) {
	r, w := testutil.MustPipe()
	ch := make(chan []byte, 1)
	go func() { ch <- testutil.MustReadAllAndClose(r) }()
	return w, func() []byte {
		w.Close()
		return <-ch
	}
}
