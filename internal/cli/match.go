package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/cache"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/observability"
)

// matchOpts holds the command-line flags for the match command.
type matchOpts struct {
	typing  string // typing constraints as inline JSON or file path
	output  string // output file path (stdout if empty)
	noCache bool   // bypass the match-result cache
}

// matchCommand creates the match command.
func (c *CLI) matchCommand() *cobra.Command {
	var opts matchOpts

	cmd := &cobra.Command{
		Use:   "match HIERARCHY GRAPH PATTERN",
		Short: "Find instances of a pattern in a hierarchy graph",
		Long: `Find all injective instances of a pattern graph in a member of a hierarchy.

Typing constraints restrict matches to nodes with the given types:

  regraft match cells.json G pattern.json --typing '{"T": {"x": "agent"}}'

Results are written as a JSON array of node mappings.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := loadHierarchy(args[0])
			if err != nil {
				return err
			}
			pattern, err := loadGraph(args[2])
			if err != nil {
				return err
			}
			typing, err := loadTyping(opts.typing)
			if err != nil {
				return err
			}
			graphID := args[1]
			if max := c.cfg.Matcher.MaxPatternNodes; max > 0 && pattern.Order() > max {
				return rerr.New(rerr.ErrCodeInvalidInput,
					"pattern has %d nodes, limit is %d", pattern.Order(), max)
			}

			g, err := h.Graph(graphID)
			if err != nil {
				return err
			}

			backend, err := c.newCache(opts.noCache)
			if err != nil {
				c.Logger.Warnf("Cache disabled: %v", err)
				backend = cache.NewNullCache()
			}
			defer backend.Close()
			matchCache := cache.NewMatchCache(backend, nil, c.cfg.Cache.TTL.Std())

			graphHash := cache.GraphHash(g)
			patternHash := cache.GraphHash(pattern)
			keyOpts := cache.MatchKeyOpts{TypingHash: cache.TypingHash(typing)}

			observability.Match().OnMatchStart(ctx, graphID, pattern.Order())
			start := time.Now()

			matches, hit := matchCache.Get(ctx, graphHash, patternHash, keyOpts)
			if hit {
				observability.Cache().OnCacheHit(ctx, "match")
			} else {
				observability.Cache().OnCacheMiss(ctx, "match")
				sp := newSpinnerWithContext(ctx, "Matching pattern...")
				sp.Start()
				matches, err = h.FindMatching(graphID, pattern, typing)
				sp.Stop()
				observability.Match().OnMatchComplete(ctx, graphID, len(matches), time.Since(start), err)
				if err != nil {
					return err
				}
				if err := matchCache.Put(ctx, graphHash, patternHash, keyOpts, matches); err != nil {
					c.Logger.Warnf("Cannot cache results: %v", err)
				} else {
					observability.Cache().OnCacheSet(ctx, "match", len(matches))
				}
			}
			if hit {
				observability.Match().OnMatchComplete(ctx, graphID, len(matches), time.Since(start), nil)
			}

			data, err := marshalIndent(matches)
			if err != nil {
				return err
			}
			if err := writeOutput(data, opts.output); err != nil {
				return err
			}
			printSuccess("Found %d instances in %s", len(matches), graphID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.typing, "typing", "", "typing constraints (inline JSON or file)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the match-result cache")

	return cmd
}
