package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/observability"
	"github.com/regraft/regraft/pkg/rule"
)

// applyOpts holds the command-line flags for the apply command.
type applyOpts struct {
	instance    string // instance as inline JSON or file path
	pTyping     string // clone branch selection per graph
	rhsTyping   string // types for added nodes per graph
	strict      bool   // refuse rewrites that would change other graphs
	interactive bool   // pick the instance interactively when ambiguous
	output      string // output file path (stdout if empty)
}

// applyCommand creates the apply command.
func (c *CLI) applyCommand() *cobra.Command {
	var opts applyOpts

	cmd := &cobra.Command{
		Use:   "apply HIERARCHY GRAPH RULE",
		Short: "Apply a rewriting rule and propagate the changes",
		Long: `Apply a rewriting rule to a graph in a hierarchy.

Restrictive changes (removals, clones) propagate to graphs typed by the
target; relaxing changes (additions, merges) propagate to the graphs it is
typed by. With --strict, rewrites that would change any other graph fail
instead.

If --instance is omitted, the rule's pattern is matched against the graph:
a single instance is applied directly, several instances require
--interactive to pick one.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := loadHierarchy(args[0])
			if err != nil {
				return err
			}
			r, err := loadRule(args[2])
			if err != nil {
				return err
			}
			graphID := args[1]

			var instance homomorphism.Mapping
			if opts.instance != "" {
				instance, err = loadMapping(opts.instance)
				if err != nil {
					return err
				}
			} else {
				instance, err = c.pickInstance(cmd, h, graphID, r, opts.interactive)
				if err != nil {
					return err
				}
			}

			pTyping, err := loadSelection(opts.pTyping)
			if err != nil {
				return err
			}
			rhsTyping, err := loadSelection(opts.rhsTyping)
			if err != nil {
				return err
			}

			observability.Rewrite().OnRewriteStart(ctx, graphID)
			p := newProgress(c.Logger)
			start := time.Now()

			sp := newSpinnerWithContext(ctx, "Rewriting...")
			sp.Start()
			result, rhsInstance, err := h.Rewrite(graphID, r, instance, hierarchy.RewriteOptions{
				PTyping:   pTyping,
				RHSTyping: rhsTyping,
				Strict:    opts.strict,
			})
			sp.Stop()
			affected := 0
			if result != nil {
				affected = len(result.Graphs())
			}
			observability.Rewrite().OnRewriteComplete(ctx, graphID, affected, time.Since(start), err)
			if err != nil {
				return err
			}
			p.done("Rewrite complete")

			data, err := hierarchy.Marshal(result)
			if err != nil {
				return err
			}
			if err := writeOutput(data, opts.output); err != nil {
				return err
			}
			printSuccess("Applied rule to %s", graphID)
			printDetail("%s", formatMapping(rhsInstance))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.instance, "instance", "", "instance mapping (inline JSON or file)")
	cmd.Flags().StringVar(&opts.pTyping, "p-typing", "", "clone branch selection (inline JSON or file)")
	cmd.Flags().StringVar(&opts.rhsTyping, "rhs-typing", "", "types for added nodes (inline JSON or file)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail instead of changing other graphs")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the instance interactively")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")

	return cmd
}

// pickInstance matches the rule's pattern against the graph and selects an
// instance: a unique match is used directly, several need --interactive.
func (c *CLI) pickInstance(cmd *cobra.Command, h *hierarchy.Hierarchy, graphID string, r *rule.Rule, interactive bool) (homomorphism.Mapping, error) {
	sp := newSpinnerWithContext(cmd.Context(), "Matching pattern...")
	sp.Start()
	matches, err := h.FindMatching(graphID, r.LHS, nil)
	sp.Stop()
	if err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, rerr.New(rerr.ErrCodeInvalidInput,
			"rule pattern has no instances in %q", graphID)
	case len(matches) == 1:
		return matches[0], nil
	case !interactive:
		return nil, rerr.New(rerr.ErrCodeInvalidInput,
			"rule pattern has %d instances in %q, pass --instance or --interactive",
			len(matches), graphID)
	}

	model := NewMatchListModel(graphID, matches)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("interactive selection: %w", err)
	}
	picked := final.(MatchListModel)
	if picked.Selected == nil {
		return nil, rerr.New(rerr.ErrCodeInvalidInput, "no instance selected")
	}
	return picked.Selected, nil
}
