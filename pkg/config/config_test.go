package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	rerr "github.com/regraft/regraft/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regraft.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.TTL.Std() != 24*time.Hour {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[cache]
backend = "redis"
addr = "localhost:6379"
ttl = "30m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Addr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Std() != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", cfg.Cache.TTL.Std())
	}
	// Unset sections keep defaults.
	if cfg.Server.Addr != ":8472" {
		t.Errorf("server addr = %q, want default", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad backend", "[cache]\nbackend = \"memcache\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"negative pattern limit", "[matcher]\nmax_pattern_nodes = -1\n"},
		{"empty server addr", "[server]\naddr = \"\"\n"},
		{"bad ttl", "[cache]\nttl = \"soon\"\n"},
		{"not toml", "{\"log\": {}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !rerr.Is(err, rerr.ErrCodeInvalidInput) {
				t.Errorf("got %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if cfg != Default() {
		t.Error("empty path should return defaults")
	}

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg != Default() {
		t.Error("missing file should return defaults")
	}
}
