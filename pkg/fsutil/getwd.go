package fsutil

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"src.lsh.sh/pkg/env"
)

// GetHome finds the home directory of a specified user. When given an empty
// string, it finds the home directory of the current user.
func GetHome(uname string) (string, error) {
	if uname == "" {
		// Use $HOME as override if we are looking for the home of the current
		// user.
		if home := os.Getenv(env.HOME); home != "" {
			return home, nil
		}
	}

	// Look up the user.
	var u *user.User
	var err error
	if uname == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(uname)
	}
	if err != nil {
		return "", fmt.Errorf("can't resolve ~%s: %s", uname, err.Error())
	}
	return strings.TrimSuffix(u.HomeDir, "/"), nil
}

// TildeAbbr abbreviates home to ~ at the start of path.
func TildeAbbr(path, home string) string {
	if home == "" || home == "/" {
		// If home is "" or "/", do not abbreviate because (1) it is likely a
		// problem with the environment and (2) it will make the path actually
		// longer.
		return path
	}
	if path == home {
		return "~"
	} else if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}
