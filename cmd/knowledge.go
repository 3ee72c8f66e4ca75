package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/ui"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the custom knowledge sent in developer mode",
	Long: `Knowledge entries are extra facts the assistant should use. They are
sent only with developer-mode messages, and the gateway uses them only for
accounts with developer access.`,
}

var knowledgeAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a knowledge entry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := strings.TrimSpace(strings.Join(args, " "))
		if entry == "" {
			return fmt.Errorf("knowledge entry is empty")
		}
		if err := config.AddKnowledge(entry); err != nil {
			return fmt.Errorf("failed to save knowledge: %w", err)
		}
		ui.Success("Knowledge entry added.")
		return nil
	},
}

var knowledgeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List knowledge entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Knowledge) == 0 {
			fmt.Fprintln(os.Stderr, "  No knowledge entries.")
			return nil
		}
		dim := color.New(color.FgHiBlack)
		for i, k := range cfg.Knowledge {
			dim.Printf("  %2d. ", i+1)
			fmt.Println(k)
		}
		return nil
	},
}

var knowledgeRmCmd = &cobra.Command{
	Use:     "rm <n>",
	Aliases: []string{"remove"},
	Short:   "Remove the knowledge entry numbered n",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry number %q", args[0])
		}
		if err := config.RemoveKnowledge(n - 1); err != nil {
			return err
		}
		ui.Success("Knowledge entry removed.")
		return nil
	},
}

func init() {
	knowledgeCmd.AddCommand(knowledgeAddCmd)
	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeRmCmd)
}
