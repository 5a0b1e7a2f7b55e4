package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"inimerge.dev/cli/internal/core/merge"
)

// PreviewFlags holds command-line flags for the preview command.
type PreviewFlags struct {
	Source  string
	Target  string
	Rules   string
	Backend string
	Plain   bool
}

func newPreviewCommand() *cobra.Command {
	flags := &PreviewFlags{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what a merge would change, without writing anything",
		Long: `Preview a merge as a unified diff against the target file.

By default the diff opens in an interactive pager; --plain prints it to
stdout instead.

Examples:
  inimerge preview -s src.ini -t live.ini -r rules.toml
  inimerge preview -s src.ini -t live.ini --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(flags, cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.Source, "source", "s", "", "managed source file (required)")
	cmd.Flags().StringVarP(&flags.Target, "target", "t", "", "live target file (required)")
	cmd.Flags().StringVarP(&flags.Rules, "rules", "r", "", "rules file (TOML)")
	cmd.Flags().StringVar(&flags.Backend, "secret-backend", "keyring", "secret backend: keyring, env or none")
	cmd.Flags().BoolVar(&flags.Plain, "plain", false, "print the diff instead of opening the pager")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runPreview(flags *PreviewFlags, cmd *cobra.Command) error {
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

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(target.Raw()),
		B:        difflib.SplitLines(result.String()),
		FromFile: flags.Target,
		ToFile:   "merged",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no changes")
		return nil
	}

	if flags.Plain {
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return nil
	}

	model := newPreviewModel(flags.Target, strings.Split(strings.TrimRight(diff, "\n"), "\n"))
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	return nil
}

var (
	previewTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	previewHelpStyle   = lipgloss.NewStyle().Faint(true)
	previewAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	previewDelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	previewHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	previewHeaderStyle = lipgloss.NewStyle().Bold(true)
)

// previewModel is the Bubble Tea state for the diff pager.
type previewModel struct {
	title  string
	lines  []string
	offset int
	width  int
	height int
}

func newPreviewModel(title string, lines []string) previewModel {
	return previewModel{title: title, lines: lines}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.offset--
		case "down", "j":
			m.offset++
		case "pgup":
			m.offset -= m.pageSize()
		case "pgdown", " ":
			m.offset += m.pageSize()
		case "g", "home":
			m.offset = 0
		case "G", "end":
			m.offset = len(m.lines)
		}
	}
	m.offset = clamp(m.offset, 0, max(0, len(m.lines)-m.pageSize()))
	return m, nil
}

func (m previewModel) View() string {
	var b strings.Builder
	b.WriteString(previewTitleStyle.Render("merge preview: "+m.title) + "\n")

	end := min(m.offset+m.pageSize(), len(m.lines))
	for _, line := range m.lines[m.offset:end] {
		b.WriteString(styleDiffLine(line) + "\n")
	}

	b.WriteString(previewHelpStyle.Render("↑/↓ scroll · pgup/pgdn page · g/G top/bottom · q quit"))
	return b.String()
}

// pageSize is the number of diff lines visible between title and help line.
func (m previewModel) pageSize() int {
	if m.height <= 2 {
		return 1
	}
	return m.height - 2
}

func styleDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return previewHeaderStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return previewHunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return previewAddStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return previewDelStyle.Render(line)
	default:
		return line
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
