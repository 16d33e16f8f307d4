package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Backend != BackendVM {
		t.Errorf("default backend = %q, want %q", cfg.Backend, BackendVM)
	}
	if cfg.Cache.Disabled {
		t.Error("cache disabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := writeConfig(t, `
backend: interp
cache:
  disabled: true
  path: /tmp/alt.db
repl:
  history_file: /tmp/hist
`)
	cfg, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendTreeWalk {
		t.Errorf("backend = %q, want %q", cfg.Backend, BackendTreeWalk)
	}
	if !cfg.Cache.Disabled {
		t.Error("cache.disabled not applied")
	}
	if cfg.Cache.Path != "/tmp/alt.db" {
		t.Errorf("cache.path = %q", cfg.Cache.Path)
	}
	if cfg.REPL.HistoryFile != "/tmp/hist" {
		t.Errorf("repl.history_file = %q", cfg.REPL.HistoryFile)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, "cache:\n  disabled: true\n")
	cfg, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendVM {
		t.Errorf("backend = %q, want default %q", cfg.Backend, BackendVM)
	}
	if !cfg.Cache.Disabled {
		t.Error("cache.disabled not applied")
	}
}

func TestMissingFileIsDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendVM {
		t.Errorf("backend = %q, want %q", cfg.Backend, BackendVM)
	}
}

func TestInvalidBackendRejected(t *testing.T) {
	dir := writeConfig(t, "backend: turbo\n")
	if _, err := LoadOrDefault(dir); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestMalformedYAMLRejected(t *testing.T) {
	dir := writeConfig(t, "backend: [unclosed\n")
	if _, err := LoadOrDefault(dir); err == nil {
		t.Error("malformed yaml accepted")
	}
}
