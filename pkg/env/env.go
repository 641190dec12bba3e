// Package env keeps names of environment variables with special significance to
// lsh.
package env

// Environment variables with special significance to lsh.
//
// Note that some of these env vars may be significant only in special
// circumstances, such as when running unit tests.
const (
	HOME            = "HOME"
	PATH            = "PATH"
	PWD             = "PWD"
	OLDPWD          = "OLDPWD"
	SHLVL           = "SHLVL"
	XDG_CONFIG_HOME = "XDG_CONFIG_HOME"
	XDG_DATA_HOME   = "XDG_DATA_HOME"

	// Multiplies the timeouts used in tests that wait for processes.
	LSH_TEST_TIME_SCALE = "LSH_TEST_TIME_SCALE"

	// Set in the environment of a re-executed shell process that should run
	// a single builtin or function instead of starting normally.
	LSH_FORKED = "LSH_FORKED"
)
