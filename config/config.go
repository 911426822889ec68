// Package config handles syncbridge.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/threadware/syncbridge/shmem"
)

// Config represents a syncbridge.toml file.
type Config struct {
	Channel Channel        `toml:"channel"`
	Runtime Runtime        `toml:"runtime"`
	Log     Log            `toml:"log"`
	State   map[string]any `toml:"state"`

	// Dir is the directory containing the syncbridge.toml file (set at load time).
	Dir string `toml:"-"`
}

// Channel configures the shared buffer.
type Channel struct {
	Capacity int `toml:"capacity"`
}

// Runtime configures the script evaluator.
type Runtime struct {
	Artifact string `toml:"artifact"`
}

// Log configures logging output.
type Log struct {
	Verbosity int     `toml:"verbosity"`
	Path      *string `toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Channel: Channel{Capacity: shmem.DefaultCapacity},
		State:   map[string]any{},
	}
}

// Load parses a syncbridge.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "syncbridge.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.Channel.Capacity == 0 {
		c.Channel.Capacity = shmem.DefaultCapacity
	}
	if c.State == nil {
		c.State = map[string]any{}
	}
	if c.Runtime.Artifact != "" && !filepath.IsAbs(c.Runtime.Artifact) {
		c.Runtime.Artifact = filepath.Join(c.Dir, c.Runtime.Artifact)
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a syncbridge.toml file,
// then loads and returns the configuration. Returns the defaults if no
// file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "syncbridge.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
