// Package config loads tickwork.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/tickwork/logging"
)

// Config is the on-disk configuration. Zero values fall back to the
// defaults returned by the accessor methods.
type Config struct {
	Version int `yaml:"version"`
	Engine  struct {
		TickRate  int   `yaml:"tick_rate"`
		MaxTicks  int   `yaml:"max_ticks"`
		Seed      int64 `yaml:"seed"`
		Autostart *bool `yaml:"autostart"`
	} `yaml:"engine"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Scripts struct {
		Dir string `yaml:"dir"`
	} `yaml:"scripts"`
	Tasks []map[string]any `yaml:"tasks"`

	path string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Version: 1}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes and validates configuration bytes.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if cfg.Engine.TickRate < 0 {
		return nil, fmt.Errorf("engine.tick_rate must not be negative")
	}
	if cfg.Engine.MaxTicks < 0 {
		return nil, fmt.Errorf("engine.max_ticks must not be negative")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	return &cfg, nil
}

// TickRate returns ticks per second, defaulting to 10.
func (c *Config) TickRate() int {
	if c.Engine.TickRate == 0 {
		return 10
	}
	return c.Engine.TickRate
}

// TickInterval returns the wall-clock time between ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate())
}

// Autostart reports whether the scheduler starts running on load, defaulting
// to true.
func (c *Config) Autostart() bool {
	if c.Engine.Autostart == nil {
		return true
	}
	return *c.Engine.Autostart
}

// Logging returns the logger options.
func (c *Config) Logging() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// ScriptsDir returns the scripts directory. Relative paths are resolved
// against the directory holding the config file.
func (c *Config) ScriptsDir() string {
	dir := c.Scripts.Dir
	if dir == "" || filepath.IsAbs(dir) || c.path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.path), dir)
}
