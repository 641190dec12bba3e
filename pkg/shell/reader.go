package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// A minimal line reader. Prompts are written to stderr.
type lineReader struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineReader(in *os.File, out io.Writer) *lineReader {
	return &lineReader{bufio.NewReader(in), out}
}

// ReadLine shows the prompt and reads one line, without the line ending. The
// last line of the input is returned even if it has no line ending; io.EOF is
// returned only when there is nothing left.
func (rd *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(rd.out, prompt)
	line, err := rd.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}
