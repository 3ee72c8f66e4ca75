package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const defaultWidth = 80

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStdinTTY reports whether stdin is an interactive terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Width is the terminal width, or 80 when unknown.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// Markdown renders md for the terminal. Piped output and rendering
// failures get the text unchanged.
func Markdown(md string) string {
	if !IsStdoutTTY() {
		return md
	}
	return renderMarkdown(md, min(Width(), 100))
}

func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

var (
	dim     = color.New(color.Faint).SprintFunc()
	accent  = color.New(color.FgCyan, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
)

// Dim greys out s.
func Dim(s string) string { return dim(s) }

// Accent highlights s.
func Accent(s string) string { return accent(s) }

// Warning colors s as a warning.
func Warning(s string) string { return warning(s) }
