package testutil

import (
	"os"
	"path/filepath"
)

// TempDir creates a temporary directory for testing that will be removed
// after the test finishes. It is different from testing.TB.TempDir in that it
// resolves symlinks in the path of the directory.
func TempDir(c Cleanuper) string {
	path, err := os.MkdirTemp("", "lshtest")
	if err != nil {
		panic(err)
	}
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		err := os.RemoveAll(path)
		if err != nil {
			panic(err)
		}
	})
	return path
}

// InTempDir is like TempDir, but also changes into the directory, and changes
// back to the original working directory when the test finishes. It returns
// the path of the directory.
func InTempDir(c Cleanuper) string {
	dir := TempDir(c)
	Chdir(c, dir)
	return dir
}

// Chdir changes into a directory, and restores the original working directory
// when a test finishes. It returns the directory for easier chaining.
func Chdir(c Cleanuper, dir string) string {
	oldWd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	Must(os.Chdir(dir))
	c.Cleanup(func() {
		Must(os.Chdir(oldWd))
	})
	return dir
}

// Dir describes the layout of a directory. The keys of the map represent
// filenames. Each value is either a string (for the content of a regular file
// with permission 0644), a File, or a Dir.
type Dir map[string]any

// File describes a file to create.
type File struct {
	Perm    os.FileMode
	Content string
}

// ApplyDir creates the given filesystem layout in the current directory.
func ApplyDir(dir Dir) {
	ApplyDirIn(dir, "")
}

// ApplyDirIn creates the given filesystem layout in a directory.
func ApplyDirIn(dir Dir, root string) {
	for name, file := range dir {
		path := filepath.Join(root, name)
		switch file := file.(type) {
		case string:
			Must(os.WriteFile(path, []byte(file), 0644))
		case File:
			Must(os.WriteFile(path, []byte(file.Content), file.Perm))
		case Dir:
			Must(os.MkdirAll(path, 0755))
			ApplyDirIn(file, path)
		default:
			panic("file is neither string, Dir, or File")
		}
	}
}
