package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrReported marks a failure the user has already been shown.
var ErrReported = errors.New("already reported")

var rootCmd = &cobra.Command{
	Use:   "jz",
	Short: "A streaming AI chat client for the terminal",
	Long: `jz chats with JonzTech AI from your terminal. Answers stream in as
they are written, conversations are kept per session, and answers the
assistant formats as documents are saved as PDFs.

Examples:
  jz chat
  jz ask "summarize the plot of Hamlet"
  jz ask --image diagram.png "what does this show?"
  cat notes.md | jz ask "turn these notes into a PDF report"
  jz serve`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(serveCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}
