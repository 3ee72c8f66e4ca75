package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/session"
	"github.com/jonztech/jz-cli/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"s"},
	Short:   "List and manage saved chats",
	Long: `Manage the chats saved for the signed-in account. Sessions are
referred to by their number in 'jz sessions list' or by id prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListCmd.RunE(cmd, args)
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved chats, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "sessions")
		if err != nil {
			return err
		}
		defer a.Close()
		printSessions(a)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <n|id>",
	Short: "Print a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "sessions")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.resolveSession(args[0])
		if err != nil {
			return err
		}
		sess, err := a.store.Get(id)
		if err != nil {
			return err
		}
		fmt.Print(ui.Markdown(transcript(sess)))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <n|id>",
	Short: "Delete a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "sessions")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.resolveSession(args[0])
		if err != nil {
			return err
		}
		if err := a.sender.DeleteSession(cmd.Context(), id); err != nil {
			return err
		}
		ui.Success("Chat deleted.")
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <n|id>",
	Short: "Remove every message of a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "sessions")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.resolveSession(args[0])
		if err != nil {
			return err
		}
		if err := a.sender.ClearSession(cmd.Context(), id); err != nil {
			return err
		}
		ui.Success("Chat cleared.")
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
}

func printSessions(a *app) {
	dim := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)

	sessions := a.store.Sessions()
	if len(sessions) == 0 {
		if a.identity.Authenticated() {
			fmt.Fprintln(os.Stderr, "  No chats yet.")
		} else {
			fmt.Fprintln(os.Stderr, "  No chats yet. Sign in with 'jz config set-token' to keep them.")
		}
		return
	}

	current := a.store.Current()
	for i, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		cyan.Fprintf(os.Stderr, "  %s %2d. ", marker, i+1)
		fmt.Fprintf(os.Stderr, "%-32s ", s.Title)
		dim.Fprintf(os.Stderr, "%3d msgs  %s  %s\n", len(s.Messages), ago(s.UpdatedAt), shortID(s.ID))
	}
}

// transcript renders a session as markdown.
func transcript(s session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	for _, m := range s.Messages {
		who := "**You**"
		if m.Role == session.RoleAssistant {
			who = "**JonzTech AI**"
		}
		fmt.Fprintf(&b, "%s · _%s_\n\n", who, m.Timestamp.Local().Format("2006-01-02 15:04"))
		if m.Image != "" {
			b.WriteString("_(image attached)_\n\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
		if m.Document != nil {
			fmt.Fprintf(&b, "📄 [%s](%s)\n\n", m.Document.Filename, m.Document.URL)
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2")
	}
}
