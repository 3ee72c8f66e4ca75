package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonztech/jz-cli/internal/ai"
	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/chat"
	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/document"
	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/session"
	"github.com/jonztech/jz-cli/internal/stats"
	"github.com/jonztech/jz-cli/internal/storage"
	"github.com/jonztech/jz-cli/internal/ui"
)

const logModule = "cli"

// app is everything a chat-facing command needs, wired from the config.
type app struct {
	cfg       *config.Config
	log       *logger.ZapLogger
	identity  auth.Identity
	store     *session.Store
	persist   storage.Store
	sender    *chat.Sender
	developer bool
}

// newApp loads the config, resolves the signed-in user and opens their
// stored sessions. subcommand tags the usage stats of every send.
func newApp(ctx context.Context, subcommand string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	a := &app{
		cfg:   cfg,
		log:   logger.NewFileLogger(config.LogPath(), cfg.LogLevel),
		store: session.NewStore(),
	}

	a.identity, err = auth.Inspect(cfg.Token)
	if err != nil {
		a.log.Warn(logModule, "stored token rejected", map[string]interface{}{"error": err.Error()})
		ui.Notice("Your saved token could not be read; continuing without signing in.")
	}

	deps := chat.Deps{
		Store:     a.store,
		Streamer:  ai.NewClient(cfg.GatewayURL, cfg.Token, cfg.AnonKey),
		Generator: document.NewPDFGenerator(cfg.DocumentsDir),
		Notifier:  chat.NotifyFunc(ui.Notice),
		Logger:    a.log,
		Identity:  a.identity,
		Observer: func(rep chat.Report) {
			if err := stats.Save(stats.FromReport(rep, subcommand, a.developer)); err != nil {
				a.log.Warn(logModule, "failed to save stats", map[string]interface{}{"error": err.Error()})
			}
		},
	}

	if a.identity.Authenticated() {
		st, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, a.identity.UserID, a.log)
		if err != nil {
			a.log.Error(logModule, "storage unavailable", map[string]interface{}{"driver": cfg.Storage.Driver, "error": err.Error()})
			ui.Notice("Chat history storage is unavailable; this session will not be saved.")
		} else {
			a.persist = st
			deps.Persistence = st
		}
	}

	a.sender = chat.NewSender(deps)
	if err := a.sender.Refresh(ctx); err != nil {
		a.log.Warn(logModule, "failed to load sessions", map[string]interface{}{"error": err.Error()})
		ui.Notice("Could not load your saved chats.")
	}
	return a, nil
}

func (a *app) Close() {
	if a.persist != nil {
		if err := a.persist.Close(); err != nil {
			a.log.Warn(logModule, "failed to close storage", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = a.log.Sync()
}

func (a *app) caps() chat.Capabilities {
	return chat.Capabilities{Developer: a.developer, Knowledge: a.cfg.Knowledge}
}

// send streams one answer to stdout and reports where a generated
// document was written.
func (a *app) send(ctx context.Context, in chat.Input) (chat.Report, error) {
	sp := ui.NewSpinner("Thinking...")
	view := ui.NewStreamView(os.Stdout, "  ", sp)
	stop := view.Watch(a.store)
	sp.Start()

	rep, err := a.sender.Send(ctx, in, a.caps())
	stop()
	view.Finish(ui.Markdown)

	if rep.Document != nil {
		ui.Success(fmt.Sprintf("%s saved to %s", rep.Document.Filename, strings.TrimPrefix(rep.Document.URL, "file://")))
	}
	return rep, err
}

// resolveSession accepts a 1-based position in the session list or an id
// (or unique id prefix).
func (a *app) resolveSession(ref string) (string, error) {
	sessions := a.store.Sessions()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("no session #%d", n)
		}
		return sessions[n-1].ID, nil
	}
	match := ""
	for _, s := range sessions {
		if s.ID == ref {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("session %q is ambiguous", ref)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", session.ErrNotFound, ref)
	}
	return match, nil
}

// readStdin returns piped input, or "" when stdin is a terminal.
func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdin+1))
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(data))
	if len(s) > maxStdin {
		s = s[:maxStdin] + "\n... (truncated)"
	}
	return s
}

const maxStdin = 64 << 10
