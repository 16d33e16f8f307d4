// Package config holds runtime settings. A falcon.yaml next to the
// script (or in the working directory) overrides the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// SourceExt is the script file extension.
	SourceExt = ".fn"
	// CompiledExt is the serialized chunk file extension.
	CompiledExt = ".fnc"
	// FileName is the config file looked up next to the script.
	FileName = "falcon.yaml"
)

// Backend selection values.
const (
	BackendVM       = "vm"
	BackendTreeWalk = "interp"
)

type Config struct {
	// Backend picks the execution engine: "vm" (default) or "interp".
	Backend string      `yaml:"backend"`
	Cache   CacheConfig `yaml:"cache"`
	REPL    REPLConfig  `yaml:"repl"`
}

type CacheConfig struct {
	// Disabled turns off the persistent chunk cache.
	Disabled bool `yaml:"disabled"`
	// Path overrides the cache database location.
	Path string `yaml:"path"`
}

type REPLConfig struct {
	// HistoryFile overrides where the line editor persists history.
	HistoryFile string `yaml:"history_file"`
}

// Default returns the built-in settings. Cache and history land in the
// user's cache and home directories when resolvable.
func Default() *Config {
	cfg := &Config{Backend: BackendVM}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.Cache.Path = filepath.Join(dir, "falcon", "chunks.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.REPL.HistoryFile = filepath.Join(home, ".falcon_history")
	}
	return cfg
}

// Load reads a config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault looks for falcon.yaml in dir; a missing file is not an
// error, a malformed one is.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendVM, BackendTreeWalk:
		return nil
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendVM, BackendTreeWalk)
	}
}
