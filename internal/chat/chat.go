// Package chat drives one send: it appends the user turn, streams the
// answer into an assistant placeholder, post-processes the finished text
// and persists the exchange.
package chat

import (
	"context"
	"errors"

	"github.com/jonztech/jz-cli/internal/session"
)

var (
	ErrBusy            = errors.New("a response is still streaming")
	ErrDeveloperDenied = errors.New("developer mode requires the developer role")
	ErrEmptyInput      = errors.New("nothing to send")
)

// Persistence stores sessions for the signed-in owner. Implementations are
// owner-scoped and treat every call as a no-op when there is no owner.
type Persistence interface {
	CreateSession(ctx context.Context, title string) (string, error)
	SaveMessage(ctx context.Context, sessionID string, msg session.Message) (string, error)
	UpdateSessionTitle(ctx context.Context, sessionID, title string) error
	DeleteSession(ctx context.Context, sessionID string) error
	ClearSessionMessages(ctx context.Context, sessionID string) error
	LoadSessions(ctx context.Context) ([]session.Session, error)
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifyFunc adapts a func to Notifier.
type NotifyFunc func(message string)

func (f NotifyFunc) Notify(message string) { f(message) }

// Capabilities are the per-send privileges the caller asks for. They are
// never stored on the Sender.
type Capabilities struct {
	Developer bool
	Knowledge []string
}

// Input is what the user submits.
type Input struct {
	Text     string
	Image    string // data URL
	Document *Document
}

func (in Input) empty() bool {
	return in.Text == "" && in.Image == "" && (in.Document == nil || in.Document.Text == "")
}
