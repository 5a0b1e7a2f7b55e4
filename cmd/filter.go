package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inimerge.dev/cli/internal/core/document"
	"inimerge.dev/cli/internal/core/filter"
)

// FilterFlags holds command-line flags for the filter command.
type FilterFlags struct {
	Input  string
	Rules  string
	Output string
	Write  bool
}

func newFilterCommand() *cobra.Command {
	flags := &FilterFlags{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Strip runtime state and redact secrets from one file",
		Long: `Filter a single file through the rule set.

Entries matched by delete rules are removed, set rules force their value and
secret rules redact the value. The typical use is turning a live file into
committable source content.

Example:
  inimerge filter -i ~/.config/konversationrc -r rules.toml > managed/konversationrc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(flags, cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.Input, "input", "i", "", "file to filter (required)")
	cmd.Flags().StringVarP(&flags.Rules, "rules", "r", "", "rules file (TOML)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "write result to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.Write, "write", false, "write result back to the input file")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("output", "write")

	return cmd
}

func runFilter(flags *FilterFlags, cmd *cobra.Command) error {
	set, err := loadRules(flags.Rules)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(flags.Input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	doc, err := document.Parse(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", flags.Input, err)
	}

	return writeOutput(cmd, filter.Apply(doc, set), flags.Output, flags.Write, flags.Input)
}
