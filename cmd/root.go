package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inimerge",
		Short: "Format-preserving merge of INI-style configuration files",
		Long: `inimerge merges a managed "source" INI file into a live "target" INI file.

Source values win by default, while rules can mark individual keys or whole
sections as runtime state to leave alone, force values, or pull secrets from
the system keyring. Lines the merge does not touch are reproduced byte for
byte, so diffs stay minimal.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	// Add subcommands
	rootCmd.AddCommand(newMergeCommand())
	rootCmd.AddCommand(newFilterCommand())
	rootCmd.AddCommand(newPreviewCommand())

	return rootCmd
}
