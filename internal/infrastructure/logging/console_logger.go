// Package logging provides the CLI's console diagnostics. Output goes to
// stderr so merged text on stdout stays clean for redirection.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	debugStyle = lipgloss.NewStyle().Faint(true)
)

// ConsoleLogger writes human-readable diagnostics to a writer.
type ConsoleLogger struct {
	out   io.Writer
	debug bool
}

// NewConsoleLogger creates a logger. Debug messages are suppressed unless
// debug is set.
func NewConsoleLogger(out io.Writer, debug bool) *ConsoleLogger {
	return &ConsoleLogger{out: out, debug: debug}
}

// Warnf reports a recoverable problem.
func (l *ConsoleLogger) Warnf(format string, args ...any) {
	fmt.Fprintln(l.out, warnStyle.Render("warning:")+" "+fmt.Sprintf(format, args...))
}

// Debugf reports internal detail when debug output is enabled.
func (l *ConsoleLogger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	fmt.Fprintln(l.out, debugStyle.Render(fmt.Sprintf(format, args...)))
}
