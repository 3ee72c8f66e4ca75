package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and streaming performance",
	Long: `Display a dashboard of your jz usage: sends, success rate, time to the
first streamed word, total answer time and the most common failures.

Data is collected automatically and stored locally in ~/.jz/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 jz stats\n\n")

		if summary.TotalSends == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Chat for a while and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Sends:        ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalSends)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week, %d chats)\n", summary.TodayCount, summary.ThisWeekCount, summary.Sessions)

		green.Fprintf(os.Stderr, "  Success:      ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		}

		green.Fprintf(os.Stderr, "  First words:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstDeltaMs)
		green.Fprintf(os.Stderr, "  Full answer:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgLatencyMs)
		green.Fprintf(os.Stderr, "  Streamed:     ")
		fmt.Fprintf(os.Stderr, "%d chars", summary.TotalChars)
		if summary.TotalDropped > 0 {
			yellow.Fprintf(os.Stderr, "  (%d fragments dropped)", summary.TotalDropped)
		}
		fmt.Fprintln(os.Stderr)
		if summary.Unterminated > 0 {
			yellow.Fprintf(os.Stderr, "  ⚠ %d answers ended without a completion marker\n", summary.Unterminated)
		}
		if summary.Documents > 0 || summary.DeveloperSends > 0 {
			dim.Fprintf(os.Stderr, "  %d documents generated, %d developer-mode sends\n", summary.Documents, summary.DeveloperSends)
		}

		if len(summary.SubcmdBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Subcommands")
			subs := make([]string, 0, len(summary.SubcmdBreakdown))
			for sub := range summary.SubcmdBreakdown {
				subs = append(subs, sub)
			}
			sort.Strings(subs)
			for _, sub := range subs {
				count := summary.SubcmdBreakdown[sub]
				pct := float64(count) / float64(summary.TotalSends) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-10s ", sub)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, count, pct)
			}
		}

		if len(summary.TopErrors) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Failures")
			for i, ec := range summary.TopErrors {
				msg := truncate(ec.Error, 60)
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", msg)
				dim.Fprintf(os.Stderr, "(%dx)\n", ec.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}

// truncate shortens s to n runes plus an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
