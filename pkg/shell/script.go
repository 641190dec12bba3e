package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"src.lsh.sh/pkg/diag"
	"src.lsh.sh/pkg/eval"
	"src.lsh.sh/pkg/parse"
)

// Configuration for the script mode.
type scriptCfg struct {
	Cmd         bool
	CompileOnly bool
	JSON        bool
}

// Executes a script file, or code given with -c. The remaining arguments
// become $argv.
func script(ev *eval.Evaler, fds [3]*os.File, args []string, cfg *scriptCfg) int {
	arg0 := args[0]
	ev.State.Set("argv", args[1:])

	var name, code string
	if cfg.Cmd {
		name = "code from -c"
		code = arg0
	} else {
		var err error
		name, err = filepath.Abs(arg0)
		if err != nil {
			fmt.Fprintf(fds[2],
				"cannot get full path of script %q: %v\n", arg0, err)
			return 2
		}
		code, err = readFileUTF8(name)
		if err != nil {
			fmt.Fprintf(fds[2], "cannot read script %q: %v\n", name, err)
			return 2
		}
	}
	return runScript(ev, fds, parse.Source{Name: name, Code: code, IsFile: !cfg.Cmd}, cfg)
}

// Executes code read from stdin.
func scriptStdin(ev *eval.Evaler, fds [3]*os.File, cfg *scriptCfg) int {
	data, err := io.ReadAll(fds[0])
	if err != nil {
		fmt.Fprintln(fds[2], "cannot read stdin:", err)
		return 2
	}
	if !utf8.Valid(data) {
		fmt.Fprintln(fds[2], "cannot read stdin:", errSourceNotUTF8)
		return 2
	}
	return runScript(ev, fds, parse.Source{Name: "[stdin]", Code: string(data)}, cfg)
}

func runScript(ev *eval.Evaler, fds [3]*os.File, src parse.Source, cfg *scriptCfg) int {
	if cfg.CompileOnly {
		_, err := parse.Parse(src)
		if cfg.JSON {
			fmt.Fprintf(fds[1], "%s\n", errorToJSON(err))
		} else if err != nil {
			diag.ShowError(fds[2], err)
		}
		if err != nil {
			return 2
		}
		return 0
	}

	status, err := ev.Execute(src)
	if err != nil {
		diag.ShowError(fds[2], err)
		return 2
	}
	if exit, ok := ev.Exited(); ok {
		return int(exit)
	}
	return int(status)
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}

// An auxiliary struct for converting errors with diagnostics information to JSON.
type errorInJSON struct {
	FileName string `json:"fileName"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Message  string `json:"message"`
}

// Converts a parse error into a JSON array. A nil error is an empty array.
func errorToJSON(err error) []byte {
	converted := []errorInJSON{}
	if e := parse.GetError(err); e != nil {
		converted = append(converted,
			errorInJSON{e.Context.Name, e.Context.From, e.Context.To, e.Message})
	}
	jsonError, errMarshal := json.Marshal(converted)
	if errMarshal != nil {
		return []byte(`[{"message":"Unable to convert the errors to JSON"}]`)
	}
	return jsonError
}
