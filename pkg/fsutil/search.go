// Package fsutil contains filesystem utilities.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Search when no directory contains the
	// command.
	ErrNotFound = errors.New("command not found")
	// ErrNotExecutable is returned by Search when the command names a file
	// that exists but cannot be executed.
	ErrNotExecutable = errors.New("permission denied")
)

// DontSearch determines whether the path to an external command should be
// taken literally and not searched.
func DontSearch(exe string) bool {
	return strings.ContainsRune(exe, '/')
}

// IsExecutable returns whether the FileInfo refers to an executable file.
func IsExecutable(stat os.FileInfo) bool {
	return !stat.IsDir() && stat.Mode()&0o111 != 0
}

// Search finds the external command named exe. If exe contains a slash it is
// checked as is, relative to wd when not absolute; otherwise each of dirs is
// tried in turn. An empty element of dirs means wd.
func Search(exe, wd string, dirs []string) (string, error) {
	if DontSearch(exe) {
		path := exe
		if !filepath.IsAbs(path) {
			path = filepath.Join(wd, path)
		}
		return path, checkExecutable(path)
	}
	found := false
	for _, dir := range dirs {
		if dir == "" {
			dir = wd
		} else if !filepath.IsAbs(dir) {
			dir = filepath.Join(wd, dir)
		}
		path := filepath.Join(dir, exe)
		err := checkExecutable(path)
		if err == nil {
			return path, nil
		} else if err == ErrNotExecutable {
			found = true
		}
	}
	if found {
		return "", ErrNotExecutable
	}
	return "", ErrNotFound
}

func checkExecutable(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return ErrNotFound
	}
	if !IsExecutable(stat) {
		return ErrNotExecutable
	}
	return nil
}

// EachExternal calls f for each executable file found while scanning dirs.
//
// NOTE: EachExternal may generate the same command multiple times; once for
// each time it appears in dirs.
func EachExternal(dirs []string, f func(string)) {
	for _, dir := range dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, file := range files {
			stat, err := file.Info()
			if err == nil && IsExecutable(stat) {
				f(stat.Name())
			}
		}
	}
}
