package eval

// Exit status and exiting.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"true":  func(*Frame, []string) uint8 { return 0 },
		"false": func(*Frame, []string) uint8 { return 1 },
		"exit":  exit,
	})
}

// exit [STATUS] makes the shell stop executing after the current command.
// The status defaults to that of the last command.
func exit(fm *Frame, args []string) uint8 {
	status := fm.State.Status()
	switch len(args) {
	case 0:
	case 1:
		var err error
		status, err = parseStatus(args[0])
		if err != nil {
			return fm.usage("exit", "%v", err)
		}
	default:
		return fm.usage("exit", "takes at most one argument")
	}
	fm.exitRequested = true
	fm.exitStatus = status
	return status
}
