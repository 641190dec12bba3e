package getopt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	gSpec = &OptionSpec{'g', "global", NoArgument}
	xSpec = &OptionSpec{'x', "export", NoArgument}
	nSpec = &OptionSpec{'n', "name", RequiredArgument}
	specs = []*OptionSpec{gSpec, xSpec, nSpec}
)

var parseTests = []struct {
	name        string
	args        []string
	wantOpts    []*Option
	wantNonOpts []string
	wantErr     string
}{
	{
		name:        "chained short options",
		args:        []string{"-gx", "a"},
		wantOpts:    []*Option{{Spec: gSpec}, {Spec: xSpec}},
		wantNonOpts: []string{"a"},
	},
	{
		name:        "long options",
		args:        []string{"--global", "--name=v", "a"},
		wantOpts:    []*Option{{Spec: gSpec, Long: true}, {Spec: nSpec, Long: true, Argument: "v"}},
		wantNonOpts: []string{"a"},
	},
	{
		name:        "argument of short option",
		args:        []string{"-nv", "-n", "w"},
		wantOpts:    []*Option{{Spec: nSpec, Argument: "v"}, {Spec: nSpec, Argument: "w"}},
		wantNonOpts: nil,
	},
	{
		name:        "options stop at first non-option",
		args:        []string{"-g", "a", "-x", "-1"},
		wantOpts:    []*Option{{Spec: gSpec}},
		wantNonOpts: []string{"a", "-x", "-1"},
	},
	{
		name:        "options stop after double dash",
		args:        []string{"-g", "--", "-x"},
		wantOpts:    []*Option{{Spec: gSpec}},
		wantNonOpts: []string{"-x"},
	},
	{
		name:        "single dash is an argument",
		args:        []string{"-"},
		wantNonOpts: []string{"-"},
	},
	{
		name:     "unknown short option",
		args:     []string{"-gz"},
		wantOpts: []*Option{{Spec: gSpec}, {Spec: &OptionSpec{Short: 'z'}, Unknown: true}},
		wantErr:  "unknown option -z",
	},
	{
		name:     "unknown long option",
		args:     []string{"--bad"},
		wantOpts: []*Option{{Spec: &OptionSpec{Long: "bad"}, Unknown: true, Long: true}},
		wantErr:  "unknown option --bad",
	},
	{
		name:     "missing argument",
		args:     []string{"-n"},
		wantOpts: nil,
		wantErr:  "missing argument for -n",
	},
}

func TestParse(t *testing.T) {
	for _, test := range parseTests {
		t.Run(test.name, func(t *testing.T) {
			opts, nonOpts, err := Parse(test.args, specs, Builtin)
			if diff := cmp.Diff(test.wantOpts, opts); diff != "" {
				t.Errorf("opts (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantNonOpts, nonOpts); diff != "" {
				t.Errorf("non-option args (-want +got):\n%s", diff)
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}
			if errMsg != test.wantErr {
				t.Errorf("got error %q, want %q", errMsg, test.wantErr)
			}
		})
	}
}

func TestParse_WithoutStopBeforeFirstNonOption(t *testing.T) {
	opts, nonOpts, err := Parse([]string{"a", "-g"}, specs, StopAfterDoubleDash)
	if err != nil || len(opts) != 1 || opts[0].Spec != gSpec || len(nonOpts) != 1 {
		t.Errorf("got %v, %v, %v", opts, nonOpts, err)
	}
}
