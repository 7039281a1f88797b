package cli

import (
	"github.com/spf13/cobra"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	format  string // dot, svg, or png
	graphID string // render a single member graph instead of the skeleton
	noAttrs bool   // omit attribute dictionaries from node labels
	output  string // output file path (stdout if empty)
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render HIERARCHY",
		Short: "Render a hierarchy or one of its graphs with Graphviz",
		Long: `Render the hierarchy skeleton (graphs, rules, typing edges, relations)
or, with --graph, a single member graph. Output formats are dot, svg,
and png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := loadHierarchy(args[0])
			if err != nil {
				return err
			}

			var dot string
			if opts.graphID != "" {
				g, err := h.Graph(opts.graphID)
				if err != nil {
					return err
				}
				dot = render.ToDOT(g, render.Options{Attrs: !opts.noAttrs})
			} else {
				dot = render.HierarchyToDOT(h)
			}

			var data []byte
			switch opts.format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = render.SVG(cmd.Context(), dot)
			case "png":
				data, err = render.PNG(cmd.Context(), dot)
			default:
				return rerr.New(rerr.ErrCodeInvalidInput,
					"unknown format %q (want dot, svg, or png)", opts.format)
			}
			if err != nil {
				return err
			}
			return writeOutput(data, opts.output)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "dot", "output format (dot, svg, png)")
	cmd.Flags().StringVarP(&opts.graphID, "graph", "g", "", "render this member graph instead of the skeleton")
	cmd.Flags().BoolVar(&opts.noAttrs, "no-attrs", false, "omit attributes from node labels")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")

	return cmd
}
