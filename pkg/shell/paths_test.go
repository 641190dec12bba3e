package shell

import (
	"os"
	"path/filepath"
	"testing"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/testutil"
)

func TestDBPath_CreatesDataDir(t *testing.T) {
	home := setupCleanHomePaths(t)

	p, err := DBPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "data", "lsh", "db.bolt"); p != want {
		t.Errorf("DBPath() = %q, want %q", p, want)
	}
	stat, err := os.Stat(filepath.Dir(p))
	if err != nil || !stat.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestDBPath_FallsBackToHome(t *testing.T) {
	home := setupCleanHomePaths(t)
	testutil.Unsetenv(t, env.XDG_DATA_HOME)

	p, err := DBPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".local", "share", "lsh", "db.bolt"); p != want {
		t.Errorf("DBPath() = %q, want %q", p, want)
	}
}

func TestRCPath(t *testing.T) {
	home := setupCleanHomePaths(t)

	p, err := RCPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "config", "lsh", "rc.lsh"); p != want {
		t.Errorf("RCPath() = %q, want %q", p, want)
	}
}
