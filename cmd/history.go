package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/history"
	"github.com/jonztech/jz-cli/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show prompts typed into jz chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRecentPrompts(historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of prompts to show")
}

func printRecentPrompts(limit int) error {
	lines, err := history.Recent(limit)
	if err != nil {
		ui.Fail("failed to load history: " + err.Error())
		return ErrReported
	}
	if len(lines) == 0 {
		fmt.Fprintln(os.Stderr, "  No history yet.")
		return nil
	}

	dim := color.New(color.FgHiBlack)
	for i, line := range lines {
		dim.Fprintf(os.Stderr, "  %3d  ", i+1)
		fmt.Fprintln(os.Stderr, line)
	}
	return nil
}
