// Package config loads outpostd's optional YAML configuration file,
// mirroring the daemon's project.yaml loading idiom: read the file named
// on the command line (a missing file is an error), unmarshal with
// gopkg.in/yaml.v3, and let command-line flags override whatever it sets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds outpostd's server-wide settings.
type Config struct {
	Listen string `yaml:"listen"`
	KeyFile string `yaml:"key_file"`

	Watch struct {
		DebounceMS int  `yaml:"debounce_ms"`
		Poll       bool `yaml:"poll"`
	} `yaml:"watch"`

	Shutdown struct {
		GraceSeconds int `yaml:"grace_seconds"`
	} `yaml:"shutdown"`
}

// Default returns the built-in defaults applied before a config file or
// flags are layered on top.
func Default() Config {
	var c Config
	c.Listen = "127.0.0.1:0"
	c.Watch.DebounceMS = 500
	c.Shutdown.GraceSeconds = 10
	return c
}

// Load reads and parses a YAML config file, starting from Default() so
// unset fields keep their built-in values.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, fmt.Errorf("config %q not found", path)
		}
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// DebounceDuration converts the configured millisecond debounce into a
// time.Duration for watchmgr.
func (c Config) DebounceDuration() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// Override applies non-zero-value command-line flag overrides on top of a
// loaded/default Config, matching the flag-over-file precedence described
// in SPEC_FULL.md §7.
func (c Config) Override(listen, keyFile string, poll bool) Config {
	if listen != "" {
		c.Listen = listen
	}
	if keyFile != "" {
		c.KeyFile = keyFile
	}
	if poll {
		c.Watch.Poll = true
	}
	return c
}
