package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// Input and output.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"echo":  echo,
		"count": count,
	})
}

// Writes the arguments separated by spaces. With -n no newline is added.
func echo(fm *Frame, args []string) uint8 {
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	s := strings.Join(args, " ")
	if newline {
		s += "\n"
	}
	if _, err := fm.Stdout().WriteString(s); err != nil {
		logger.Println("echo:", err)
		return 1
	}
	return 0
}

// Writes the number of arguments. The status is 1 when there are none.
func count(fm *Frame, args []string) uint8 {
	fmt.Fprintln(fm.Stdout(), strconv.Itoa(len(args)))
	if len(args) == 0 {
		return 1
	}
	return 0
}
