package testutil

import (
	"io"
	"os"
)

// MustPipe calls os.Pipe and panics if an error is returned.
func MustPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return r, w
}

// MustReadAllAndClose reads everything from r, closes it and panics if an
// error occurs.
func MustReadAllAndClose(r io.ReadCloser) []byte {
	bs, err := io.ReadAll(r)
	if err != nil {
		panic(err)
	}
	r.Close()
	return bs
}

// MustMkdirAll calls os.MkdirAll and panics if an error is returned.
func MustMkdirAll(names ...string) {
	for _, name := range names {
		err := os.MkdirAll(name, 0700)
		if err != nil {
			panic(err)
		}
	}
}

// MustCreateEmpty creates an empty file, and panics if an error occurs.
func MustCreateEmpty(names ...string) {
	for _, name := range names {
		file, err := os.Create(name)
		if err != nil {
			panic(err)
		}
		file.Close()
	}
}

// MustWriteFile calls os.WriteFile and panics if an error occurs.
func MustWriteFile(filename, data string) {
	err := os.WriteFile(filename, []byte(data), 0600)
	if err != nil {
		panic(err)
	}
}

// MustReadFile calls os.ReadFile and panics if an error occurs.
func MustReadFile(filename string) string {
	data, err := os.ReadFile(filename)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Must panics if the error value is not nil. It is typically used like this:
//
//	testutil.Must(a_function())
//
// Where `a_function` returns a single error value.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
