package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonztech/jz-cli/internal/chat"
)

var (
	askImage   string
	askAttach  string
	askDev     bool
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask a single question and stream the answer",
	Long: `Send one message and stream the answer to stdout. Piped input is
attached as a document.

Examples:
  jz ask "explain goroutines in two paragraphs"
  jz ask --image screenshot.png "what is wrong here?"
  jz ask --attach notes.md "summarize this"
  git log -20 | jz ask "write release notes as a PDF"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askImage, "image", "", "Attach an image")
	askCmd.Flags().StringVar(&askAttach, "attach", "", "Attach a .txt or .md document")
	askCmd.Flags().BoolVar(&askDev, "dev", false, "Use developer mode (requires developer access)")
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue a saved chat (number or id)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	in := chat.Input{Text: strings.Join(args, " ")}

	if askImage != "" {
		img, err := chat.LoadImage(askImage)
		if err != nil {
			return err
		}
		in.Image = img
	}
	if askAttach != "" {
		doc, err := chat.LoadDocument(askAttach)
		if err != nil {
			return err
		}
		in.Document = doc
	} else if piped := readStdin(); piped != "" {
		in.Document = &chat.Document{Name: "stdin", Text: piped}
	}
	if in.Text == "" && in.Image == "" && in.Document == nil {
		return fmt.Errorf("please provide a prompt\n\nUsage: jz ask <your question>\nExample: jz ask \"what is a monad?\"")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, "ask")
	if err != nil {
		return err
	}
	defer a.Close()
	a.developer = askDev

	if askSession != "" {
		id, err := a.resolveSession(askSession)
		if err != nil {
			return err
		}
		if err := a.sender.Switch(id); err != nil {
			return err
		}
	}

	rep, err := a.send(ctx, in)
	if err != nil && (rep.Err != nil || errors.Is(err, chat.ErrDeveloperDenied)) {
		// The sender has already shown this one.
		return ErrReported
	}
	return err
}
