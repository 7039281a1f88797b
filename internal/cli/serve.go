package cli

import (
	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/cache"
	"github.com/regraft/regraft/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string // listen address, overrides the config value
	noCache bool   // disable the match-result cache
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve HIERARCHY",
		Short: "Serve a hierarchy over HTTP",
		Long: `Load a hierarchy file and expose it over a JSON HTTP API: graph and
rule inspection, node typing lookups, and pattern matching with cached
results. The server shuts down gracefully on interrupt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := loadHierarchy(args[0])
			if err != nil {
				return err
			}

			backend, err := c.newCache(opts.noCache)
			if err != nil {
				c.Logger.Warnf("Cache disabled: %v", err)
				backend = cache.NewNullCache()
			}
			defer backend.Close()

			addr := opts.addr
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			srv := server.New(h, server.Options{
				Logger:          c.Logger,
				Cache:           backend,
				TTL:             c.cfg.Cache.TTL.Std(),
				MaxPatternNodes: c.cfg.Matcher.MaxPatternNodes,
			})
			c.Logger.Infof("Listening on %s", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the match-result cache")

	return cmd
}
