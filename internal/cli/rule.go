package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/rule"
)

// ruleOpts holds the command-line flags for the rule command.
type ruleOpts struct {
	script string // transformation script as inline text or file path
	output string // output file path (stdout if empty)
}

// ruleCommand creates the rule command.
func (c *CLI) ruleCommand() *cobra.Command {
	var opts ruleOpts

	cmd := &cobra.Command{
		Use:   "rule PATTERN",
		Short: "Build a rewriting rule from a transformation script",
		Long: `Build a rewriting rule by compiling a transformation script against a
pattern graph. Statements end with "." and edit an identity rule over the
pattern:

  regraft rule pattern.json --script 'CLONE a AS a1. DELETE_NODE b.'

The script may also be read from a file:

  regraft rule pattern.json --script edits.txt -o rule.json

Without a script the result is the identity rule on the pattern.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			script, err := loadScript(opts.script)
			if err != nil {
				return err
			}

			r, err := rule.FromCommands(pattern, script)
			if err != nil {
				return err
			}

			data, err := rule.Marshal(r)
			if err != nil {
				return err
			}
			if err := writeOutput(data, opts.output); err != nil {
				return err
			}
			printSuccess("Built rule from %d-node pattern", pattern.Order())
			printDetail("removes %d nodes, adds %d, clones %d, merges %d",
				len(r.RemovedNodes()), len(r.AddedNodes()),
				len(r.ClonedNodes()), len(r.MergedNodes()))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.script, "script", "", "transformation script (inline or file)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")

	return cmd
}

// loadScript resolves a script argument: text containing a statement
// terminator is used inline, anything else is read as a file path.
func loadScript(arg string) (string, error) {
	if arg == "" {
		return "", nil
	}
	if strings.Contains(arg, ".") && !fileExists(arg) {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("load script %s: %w", arg, err)
	}
	return string(data), nil
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
