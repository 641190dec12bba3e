package shell

import (
	"os"
	"path/filepath"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/prog"
)

// RCPath returns the path of rc.lsh, executed in interactive mode. It lives
// next to the configuration file.
func RCPath() (string, error) {
	cfg, err := prog.ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(cfg), "rc.lsh"), nil
}

// DBPath returns the path of the database, $XDG_DATA_HOME/lsh/db.bolt or
// ~/.local/share/lsh/db.bolt. The directory is created if needed.
func DBPath() (string, error) {
	dataDir := os.Getenv(env.XDG_DATA_HOME)
	if dataDir == "" {
		home, err := fsutil.GetHome("")
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(dataDir, "lsh")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "db.bolt"), nil
}
