package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inimerge.dev/cli/internal/core/document"
	"inimerge.dev/cli/internal/core/merge"
	"inimerge.dev/cli/internal/core/rules"
	coresecrets "inimerge.dev/cli/internal/core/secrets"
	"inimerge.dev/cli/internal/infrastructure/config"
	"inimerge.dev/cli/internal/infrastructure/logging"
	"inimerge.dev/cli/internal/infrastructure/secrets"
)

// MergeFlags holds command-line flags for the merge command.
type MergeFlags struct {
	Source  string
	Target  string
	Rules   string
	Output  string
	Write   bool
	Backend string
	Debug   bool
}

func newMergeCommand() *cobra.Command {
	flags := &MergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a managed source file into a live target file",
		Long: `Merge the source file's values into the target file.

The merged result goes to stdout unless -o or --write is given. With no
rules file every key simply adopts the source value; rules add ignores,
secrets, forced values and transforms.

Examples:
  inimerge merge -s managed/konversationrc -t ~/.config/konversationrc
  inimerge merge -s src.ini -t live.ini -r rules.toml --write`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(flags, cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.Source, "source", "s", "", "managed source file (required)")
	cmd.Flags().StringVarP(&flags.Target, "target", "t", "", "live target file (required)")
	cmd.Flags().StringVarP(&flags.Rules, "rules", "r", "", "rules file (TOML)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "write result to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.Write, "write", false, "write result back to the target file")
	cmd.Flags().StringVar(&flags.Backend, "secret-backend", "keyring", "secret backend: keyring, env or none")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug output")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	cmd.MarkFlagsMutuallyExclusive("output", "write")

	return cmd
}

func runMerge(flags *MergeFlags, cmd *cobra.Command) error {
	logger := logging.NewConsoleLogger(cmd.ErrOrStderr(), flags.Debug)

	set, err := loadRules(flags.Rules)
	if err != nil {
		return err
	}
	resolver, err := newResolver(flags.Backend)
	if err != nil {
		return err
	}

	target, source, err := loadInputs(flags.Target, flags.Source)
	if err != nil {
		return err
	}

	result, err := merge.Merge(target, source, set, merge.Options{Resolver: resolver})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings() {
		logger.Warnf("%s", w)
	}
	logger.Debugf("merged %s into %s (%d segments)", flags.Source, flags.Target, len(result.Segments()))

	return writeOutput(cmd, result.String(), flags.Output, flags.Write, flags.Target)
}

// loadRules compiles the rules file, or returns the empty rule set (source
// wins everywhere) when no file is given.
func loadRules(path string) (*rules.RuleSet, error) {
	if path == "" {
		return rules.NewBuilder().Build()
	}
	return config.Load(path)
}

// loadInputs parses the target document and indexes the source document.
func loadInputs(targetPath, sourcePath string) (*document.Document, *document.SourceIndex, error) {
	targetData, err := os.ReadFile(targetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read target: %w", err)
	}
	target, err := document.Parse(string(targetData))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse target %s: %w", targetPath, err)
	}

	sourceData, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source: %w", err)
	}
	sourceDoc, err := document.Parse(string(sourceData))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse source %s: %w", sourcePath, err)
	}

	return target, document.BuildSourceIndex(sourceDoc), nil
}

func newResolver(backend string) (coresecrets.Resolver, error) {
	switch backend {
	case "keyring":
		return secrets.NewKeyringResolver(), nil
	case "env":
		return secrets.NewEnvResolver(), nil
	case "none":
		return coresecrets.Disabled(), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q (expected keyring, env or none)", backend)
	}
}

func writeOutput(cmd *cobra.Command, text, outputPath string, writeBack bool, targetPath string) error {
	switch {
	case writeBack:
		outputPath = targetPath
	case outputPath == "":
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}
