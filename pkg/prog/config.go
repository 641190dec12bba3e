package prog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
)

// Config is the content of the configuration file.
type Config struct {
	Log         string            `yaml:"log"`
	DB          string            `yaml:"db"`
	RC          string            `yaml:"rc"`
	Interactive bool              `yaml:"interactive"`
	Aliases     map[string]string `yaml:"aliases"`
}

// ConfigPath returns the default path of the configuration file,
// $XDG_CONFIG_HOME/lsh/config.yaml or ~/.config/lsh/config.yaml.
func ConfigPath() (string, error) {
	if dir := os.Getenv(env.XDG_CONFIG_HOME); dir != "" {
		return filepath.Join(dir, "lsh", "config.yaml"), nil
	}
	home, err := fsutil.GetHome("")
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lsh", "config.yaml"), nil
}

// Loads the configuration file. A missing file is only an error when its
// path was given explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			logger.Println("no config path:", err)
			return &Config{}, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Println("loaded config from", path)
	return cfg, nil
}

// ParseConfig parses the content of a configuration file. Unknown keys are
// errors.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("bad config: %w", err)
	}
	return &cfg, nil
}

// Fills in the flags that were not given on the command line.
func (cfg *Config) applyTo(f *Flags, set map[string]bool) {
	if !set["log"] {
		f.Log = cfg.Log
	}
	if !set["db"] {
		f.DB = cfg.DB
	}
	if !set["rc"] {
		f.RC = cfg.RC
	}
	if !set["i"] {
		f.Interactive = cfg.Interactive
	}
	f.Aliases = cfg.Aliases
}
