// Package ui provides terminal UI helpers.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Spinner wraps a terminal spinner shown while waiting for the first delta.
// It stays silent when stderr is not a terminal.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Spinner{s: s, enabled: term.IsTerminal(int(os.Stderr.Fd()))}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	if sp.enabled {
		sp.s.Start()
	}
}

// Stop halts the spinner and clears the line. It is safe to call twice.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	sp.s.Stop()
	Success(msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	sp.s.Stop()
	Fail(msg)
}

// Success prints a green check line to stderr.
func Success(msg string) {
	color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ %s\n", msg)
}

// Fail prints a red cross line to stderr.
func Fail(msg string) {
	color.New(color.FgRed).Fprintf(os.Stderr, "  ✗ %s\n", msg)
}

// Notice prints a user-visible notification to stderr.
func Notice(msg string) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", color.YellowString("!"), msg)
}
