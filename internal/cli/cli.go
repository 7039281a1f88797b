// Package cli implements the regraft command-line interface.
//
// This package provides commands for matching patterns against graphs in a
// hierarchy, applying rewriting rules with propagation, inspecting typings,
// rendering graphs, and managing stored hierarchies. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - match: Find instances of a pattern in a hierarchy graph
//   - apply: Apply a rewriting rule and propagate the changes
//   - rule: Build a rule from a pattern and a transformation script
//   - check: Validate a hierarchy file and print a summary
//   - type: Show the types of a node across the hierarchy
//   - render: Export graphs or the hierarchy skeleton as DOT, SVG, or PNG
//   - store: Manage stored hierarchies (file or MongoDB backend)
//   - serve: Serve a hierarchy over HTTP
//   - cache: Manage the match-result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/buildinfo"
	"github.com/regraft/regraft/pkg/cache"
	"github.com/regraft/regraft/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "regraft"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfg     config.Config
	cfgPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// LoadConfig loads the config file at path, or defaults when path is empty
// and no file exists.
func (c *CLI) LoadConfig(path string) error {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.cfgPath = path
	return nil
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Regraft rewrites hierarchies of typed graphs",
		Long:         `Regraft is a tool for sesqui-pushout rewriting in hierarchies of simple typed graphs: find pattern instances, apply rules, and let the changes propagate along the typing structure.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.matchCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.ruleCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.typeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache builds the cache backend selected by the configuration.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.cfg.Cache.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	if c.cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(c.cfg.Cache.Addr)
	}
	dir := c.cfg.Cache.Dir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/regraft/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/regraft/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
