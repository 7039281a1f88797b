package cli

import (
	"sort"

	"github.com/spf13/cobra"
)

// typeCommand creates the type command.
func (c *CLI) typeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type HIERARCHY GRAPH NODE",
		Short: "Show the types of a node in every ancestor graph",
		Long: `Show how a node is typed by each graph reachable through typing edges.
Partial typings may leave a node untyped in some ancestors; those are
listed as untyped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := loadHierarchy(args[0])
			if err != nil {
				return err
			}
			graphID, nodeID := args[1], args[2]

			// Validates the graph and node ids.
			if _, err := h.NodeType(graphID, nodeID); err != nil {
				return err
			}

			ancestors, err := h.Ancestors(graphID)
			if err != nil {
				return err
			}

			printInfo("Node %s of %s", StyleHighlight.Render(nodeID), graphID)
			ids := make([]string, 0, len(ancestors))
			for id := range ancestors {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				if typ, ok := ancestors[id][nodeID]; ok {
					printKeyValue(id, typ)
				} else {
					printKeyValue(id, StyleDim.Render("untyped"))
				}
			}
			return nil
		},
	}
	return cmd
}
