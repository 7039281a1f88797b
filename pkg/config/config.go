// Package config loads regraft configuration from TOML files.
//
// Configuration is optional: every field has a sensible default, and the
// CLI and server run without a config file at all. A file overrides only
// the fields it sets.
//
// Example:
//
//	[log]
//	level = "debug"
//
//	[cache]
//	backend = "redis"
//	addr = "localhost:6379"
//	ttl = "1h"
//
//	[matcher]
//	max_pattern_nodes = 12
//
//	[server]
//	addr = ":8080"
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	rerr "github.com/regraft/regraft/pkg/errors"
)

// =============================================================================
// Types
// =============================================================================

// Duration is a time.Duration that unmarshals from TOML strings like "30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete regraft configuration.
type Config struct {
	Log     Log      `toml:"log"`
	Cache   CacheCfg `toml:"cache"`
	Matcher Matcher  `toml:"matcher"`
	Server  Server   `toml:"server"`
}

// Log configures logging.
type Log struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
}

// CacheCfg configures the match-result cache.
type CacheCfg struct {
	// Backend is one of "file", "redis", "none".
	Backend string `toml:"backend"`
	// Dir is the cache directory for the file backend. Empty means the
	// XDG cache directory.
	Dir string `toml:"dir"`
	// Addr is the Redis address ("host:port") for the redis backend.
	Addr string `toml:"addr"`
	// TTL is the expiry for cached entries.
	TTL Duration `toml:"ttl"`
}

// Matcher configures the subgraph matcher.
type Matcher struct {
	// MaxPatternNodes rejects patterns larger than this. Matching is
	// exponential in pattern size; 0 disables the limit.
	MaxPatternNodes int `toml:"max_pattern_nodes"`
}

// Server configures the HTTP server.
type Server struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log:     Log{Level: "info"},
		Cache:   CacheCfg{Backend: "file", TTL: Duration(24 * time.Hour)},
		Matcher: Matcher{MaxPatternNodes: 20},
		Server:  Server{Addr: ":8472"},
	}
}

// Load reads a TOML config file, applying defaults for unset fields.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, rerr.Wrap(rerr.ErrCodeInvalidInput, err, "cannot read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, rerr.Wrap(rerr.ErrCodeInvalidInput, err, "cannot parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as empty.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks enum fields and cross-field requirements.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return rerr.New(rerr.ErrCodeInvalidInput, "invalid log level %q", c.Log.Level)
	}
	switch c.Cache.Backend {
	case "file", "none":
	case "redis":
		if c.Cache.Addr == "" {
			return rerr.New(rerr.ErrCodeInvalidInput, "cache backend redis requires cache.addr")
		}
	default:
		return rerr.New(rerr.ErrCodeInvalidInput, "invalid cache backend %q", c.Cache.Backend)
	}
	if c.Matcher.MaxPatternNodes < 0 {
		return rerr.New(rerr.ErrCodeInvalidInput, "matcher.max_pattern_nodes must be >= 0")
	}
	if c.Server.Addr == "" {
		return rerr.New(rerr.ErrCodeInvalidInput, "server.addr must not be empty")
	}
	return nil
}
