package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/chat"
	"github.com/jonztech/jz-cli/internal/history"
	"github.com/jonztech/jz-cli/internal/ui"
)

var chatDev bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start a conversational session with JonzTech AI. Answers stream as they
are written and context carries over between messages.

Type /help for commands, /exit or Ctrl+D to quit. Ctrl+C stops an answer
that is still streaming.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatDev, "dev", false, "Start in developer mode (requires developer access)")
}

// repl is one interactive chat: the app plus attachments queued for the
// next message.
type repl struct {
	*app
	prompt  *history.Prompt
	pending chat.Input
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, "chat")
	if err != nil {
		return err
	}
	defer a.Close()

	r := &repl{app: a}
	if chatDev {
		r.toggleDeveloper()
	}
	r.banner()

	r.prompt = history.NewPrompt()
	defer r.prompt.Close()

	for {
		line, err := r.prompt.Read(r.promptText())
		if errors.Is(err, history.ErrAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				break
			}
			continue
		}
		r.submit(ctx, line)
	}

	color.New(color.FgHiBlack).Fprintf(os.Stderr, "\n  Bye!\n\n")
	return nil
}

func (r *repl) banner() {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, "  jz chat")
	if r.identity.Authenticated() {
		dim.Fprintf(os.Stderr, "  Signed in as %s. Chats are saved.\n", r.displayName())
	} else {
		dim.Fprintln(os.Stderr, "  Not signed in. Chats last until you quit.")
	}
	dim.Fprintf(os.Stderr, "  Type /help for commands.\n\n")
}

func (r *repl) displayName() string {
	if r.identity.Email != "" {
		return r.identity.Email
	}
	return r.identity.UserID
}

func (r *repl) promptText() string {
	p := "you"
	if r.developer {
		p += " [dev]"
	}
	if r.pending.Image != "" || r.pending.Document != nil {
		p += " +"
	}
	return "  " + p + " → "
}

// submit sends line with any queued attachments. Ctrl+C cancels the
// answer without leaving the REPL.
func (r *repl) submit(ctx context.Context, line string) {
	in := r.pending
	in.Text = line
	r.pending = chat.Input{}

	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rep, err := r.send(sendCtx, in)
	if err != nil && rep.Err == nil && !errors.Is(err, chat.ErrDeveloperDenied) {
		ui.Fail(err.Error())
	}
}

// command runs a slash command and reports whether the REPL should end.
func (r *repl) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		printChatHelp()
	case "/new":
		if _, err := r.sender.NewSession(ctx); err != nil {
			ui.Fail(err.Error())
			return false
		}
		ui.Success("Started a new chat.")
	case "/sessions":
		printSessions(r.app)
	case "/switch":
		id, err := r.resolveSession(arg)
		if err != nil {
			ui.Fail(err.Error())
			return false
		}
		if err := r.sender.Switch(id); err != nil {
			ui.Fail(err.Error())
			return false
		}
		sess, _ := r.store.Get(id)
		ui.Success("Switched to " + sess.Title)
	case "/delete":
		id, err := r.targetSession(arg)
		if err != nil {
			ui.Fail(err.Error())
			return false
		}
		if err := r.sender.DeleteSession(ctx, id); err != nil {
			ui.Fail(err.Error())
			return false
		}
		ui.Success("Chat deleted.")
	case "/clear":
		id, err := r.targetSession(arg)
		if err != nil {
			ui.Fail(err.Error())
			return false
		}
		if err := r.sender.ClearSession(ctx, id); err != nil {
			ui.Fail(err.Error())
			return false
		}
		ui.Success("Chat cleared.")
	case "/dev":
		r.toggleDeveloper()
	case "/image":
		if arg == "" {
			ui.Fail("usage: /image <path>")
			return false
		}
		img, err := chat.LoadImage(arg)
		if err != nil {
			ui.Fail(err.Error())
			return false
		}
		r.pending.Image = img
		ui.Success("Image attached to your next message.")
	case "/attach":
		if arg == "" {
			ui.Fail("usage: /attach <file.txt|file.md>")
			return false
		}
		doc, err := chat.LoadDocument(arg)
		if err != nil {
			ui.Fail(err.Error())
			return false
		}
		r.pending.Document = doc
		ui.Success(doc.Name + " attached to your next message.")
	case "/history":
		limit := 10
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			limit = n
		}
		printRecentPrompts(limit)
	default:
		ui.Fail("unknown command " + name + " (try /help)")
	}
	return false
}

// targetSession is the session named by arg, or the current one.
func (r *repl) targetSession(arg string) (string, error) {
	if arg != "" {
		return r.resolveSession(arg)
	}
	if id := r.store.Current(); id != "" {
		return id, nil
	}
	return "", errors.New("no chat selected")
}

func (r *repl) toggleDeveloper() {
	if r.developer {
		r.developer = false
		ui.Success("Developer mode off.")
		return
	}
	if !r.identity.HasRole(auth.RoleDeveloper) {
		ui.Notice("Developer mode is restricted to accounts with developer access.")
		return
	}
	r.developer = true
	ui.Success(fmt.Sprintf("Developer mode on (%d knowledge entries).", len(r.cfg.Knowledge)))
}

func printChatHelp() {
	dim := color.New(color.FgHiBlack)
	cmds := [][2]string{
		{"/new", "Start a new chat"},
		{"/sessions", "List your chats"},
		{"/switch <n|id>", "Switch to another chat"},
		{"/delete [n|id]", "Delete a chat (default: current)"},
		{"/clear [n|id]", "Remove all messages of a chat"},
		{"/dev", "Toggle developer mode"},
		{"/image <path>", "Attach an image to the next message"},
		{"/attach <path>", "Attach a .txt or .md file to the next message"},
		{"/history [n]", "Show your recent prompts"},
		{"/exit", "Quit"},
	}
	fmt.Fprintln(os.Stderr)
	for _, c := range cmds {
		fmt.Fprintf(os.Stderr, "  %-18s", c[0])
		dim.Fprintln(os.Stderr, c[1])
	}
	fmt.Fprintln(os.Stderr)
}
