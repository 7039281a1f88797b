package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/homomorphism"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check HIERARCHY",
		Short: "Validate a hierarchy file and print a summary",
		Long: `Load a hierarchy file, re-verify every typing homomorphism, and print a
summary of its contents. Structural problems (unknown ids, cycles, broken
typings, non-commuting typing paths) are reported as errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := loadHierarchy(args[0])
			if err != nil {
				printError("Invalid hierarchy: %v", err)
				return err
			}

			broken := 0
			for _, e := range h.Typings() {
				t, err := h.GetTyping(e.From, e.To)
				if err != nil {
					return err
				}
				src, err := h.Graph(e.From)
				if err != nil {
					return err
				}
				dst, err := h.Graph(e.To)
				if err != nil {
					return err
				}
				if err := homomorphism.Check(src, dst, t.M, t.Total); err != nil {
					printError("Typing %s %s %s: %v", e.From, iconArrow, e.To, err)
					broken++
				}
			}

			printKeyValue("graphs", fmt.Sprintf("%d", len(h.Graphs())))
			printKeyValue("rules", fmt.Sprintf("%d", len(h.Rules())))
			printKeyValue("typings", fmt.Sprintf("%d", len(h.Typings())))
			printKeyValue("rule typings", fmt.Sprintf("%d", len(h.RuleTypings())))
			printKeyValue("relations", fmt.Sprintf("%d", len(h.Relations())))

			if broken > 0 {
				return fmt.Errorf("%d broken typings", broken)
			}
			printSuccess("Hierarchy is valid")
			return nil
		},
	}
	return cmd
}
