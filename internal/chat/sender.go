package chat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonztech/jz-cli/internal/ai"
	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/document"
	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/session"
	"github.com/jonztech/jz-cli/internal/stream"
)

const (
	logModule    = "chat"
	errorPrefix  = "Sorry, I encountered an error: "
	imageTitle   = "Image"
	deniedNotice = "Developer mode is restricted to accounts with developer access."
	stopNotice   = "Response stopped."
)

// Report describes one finished send.
type Report struct {
	SessionID string
	Stream    stream.Result
	Document  *document.Reference
	Latency   time.Duration
	Err       error
}

// Deps wires a Sender. Persistence, Generator and Observer are optional.
type Deps struct {
	Store       *session.Store
	Streamer    ai.Streamer
	Persistence Persistence
	Generator   document.Generator
	Notifier    Notifier
	Logger      logger.Logger
	Identity    auth.Identity
	// Observer receives every report, successful or not.
	Observer func(Report)
}

// Sender runs sends one at a time against a session store.
type Sender struct {
	store    *session.Store
	streamer ai.Streamer
	persist  Persistence
	docs     document.Generator
	notifier Notifier
	log      logger.Logger
	identity auth.Identity
	observe  func(Report)
	loading  atomic.Bool
	newID    func() string
}

func NewSender(d Deps) *Sender {
	s := &Sender{
		store:    d.Store,
		streamer: d.Streamer,
		persist:  d.Persistence,
		docs:     d.Generator,
		notifier: d.Notifier,
		log:      d.Logger,
		identity: d.Identity,
		observe:  d.Observer,
		newID:    uuid.NewString,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.notifier == nil {
		s.notifier = NotifyFunc(func(string) {})
	}
	return s
}

// IsLoading reports whether a send is in flight.
func (s *Sender) IsLoading() bool {
	return s.loading.Load()
}

// Identity is the caller the Sender acts for.
func (s *Sender) Identity() auth.Identity {
	return s.identity
}

func (s *Sender) persisting() bool {
	return s.persist != nil && s.identity.Authenticated()
}

// Send submits in to the current session, creating one when needed, and
// streams the answer into a new assistant message. It returns once the
// answer is final. A failed exchange leaves an error sentence in the
// assistant message and returns the cause; a cancelled one keeps the text
// streamed so far and returns context.Canceled.
func (s *Sender) Send(ctx context.Context, in Input, caps Capabilities) (Report, error) {
	if in.empty() {
		return Report{}, ErrEmptyInput
	}
	if !s.loading.CompareAndSwap(false, true) {
		return Report{}, ErrBusy
	}
	defer s.loading.Store(false)

	if caps.Developer && !s.identity.HasRole(auth.RoleDeveloper) {
		s.log.Warn(logModule, "developer mode denied", map[string]interface{}{"user_id": s.identity.UserID})
		s.notifier.Notify(deniedNotice)
		rep := Report{Err: ErrDeveloperDenied}
		s.report(rep)
		return rep, ErrDeveloperDenied
	}

	start := time.Now()
	rep := Report{}
	sessionID, err := s.ensureSession(ctx)
	if err != nil {
		return rep, err
	}
	rep.SessionID = sessionID

	userMsg := session.Message{
		ID:      s.newID(),
		Role:    session.RoleUser,
		Content: compose(in),
		Image:   in.Image,
	}
	idx, err := s.store.Append(sessionID, userMsg)
	if err != nil {
		return rep, fmt.Errorf("failed to append message: %w", err)
	}
	if idx == 0 {
		s.deriveTitle(ctx, sessionID, in)
	}

	history, err := s.history(sessionID)
	if err != nil {
		return rep, err
	}

	placeholder := session.Message{ID: s.newID(), Role: session.RoleAssistant}
	if _, err := s.store.Append(sessionID, placeholder); err != nil {
		return rep, fmt.Errorf("failed to append placeholder: %w", err)
	}

	req := ai.Request{Messages: history, DeveloperMode: caps.Developer}
	if caps.Developer {
		req.CustomKnowledge = caps.Knowledge
	}

	res, err := s.stream(ctx, sessionID, req)
	rep.Stream = res
	if errors.Is(err, context.Canceled) {
		s.stop(sessionID, res.Text)
		s.save(context.WithoutCancel(ctx), sessionID, userMsg.ID, placeholder.ID)
		rep.Err = err
		rep.Latency = time.Since(start)
		s.report(rep)
		return rep, err
	}
	if err != nil {
		s.fail(sessionID, err)
		rep.Err = err
		rep.Latency = time.Since(start)
		s.report(rep)
		return rep, err
	}

	out := document.Finalize(ctx, res.Text, s.docs)
	if err := s.store.ReplaceLastAssistantContent(sessionID, out.Text); err != nil {
		s.log.Warn(logModule, "final content dropped", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
	if out.GenerateErr != nil {
		s.log.Error(logModule, "document generation failed", map[string]interface{}{"error": out.GenerateErr.Error()})
		s.notifier.Notify("Failed to generate PDF: " + out.GenerateErr.Error())
	}
	if out.Document != nil {
		rep.Document = out.Document
		ref := session.DocumentRef{URL: out.Document.URL, Filename: out.Document.Filename}
		if err := s.store.AttachDocument(sessionID, ref); err != nil {
			s.log.Warn(logModule, "document reference dropped", map[string]interface{}{"error": err.Error()})
		}
	}

	s.save(ctx, sessionID, userMsg.ID, placeholder.ID)

	rep.Latency = time.Since(start)
	s.report(rep)
	return rep, nil
}

func (s *Sender) report(rep Report) {
	if s.observe != nil {
		s.observe(rep)
	}
}

// ensureSession returns the current session, creating one if there is none.
func (s *Sender) ensureSession(ctx context.Context) (string, error) {
	if id := s.store.Current(); id != "" {
		return id, nil
	}
	id, err := s.NewSession(ctx)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Sender) deriveTitle(ctx context.Context, sessionID string, in Input) {
	source := in.Text
	if source == "" && in.Document != nil {
		source = in.Document.Name
	}
	if source == "" {
		source = imageTitle
	}
	title, err := s.store.DeriveTitle(sessionID, source)
	if err != nil {
		s.log.Warn(logModule, "title not derived", map[string]interface{}{"error": err.Error()})
		return
	}
	if !s.persisting() {
		return
	}
	if err := s.persist.UpdateSessionTitle(ctx, sessionID, title); err != nil {
		s.log.Warn(logModule, "failed to persist title", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
}

// history is the conversation so far, as sent to the gateway.
func (s *Sender) history(sessionID string) ([]ai.Message, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	msgs := make([]ai.Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		msgs = append(msgs, ai.Message{Role: string(m.Role), Content: m.Content, Image: m.Image})
	}
	return msgs, nil
}

func (s *Sender) stream(ctx context.Context, sessionID string, req ai.Request) (stream.Result, error) {
	body, err := s.streamer.Stream(ctx, req)
	if err != nil {
		return stream.Result{}, err
	}
	defer body.Close()

	acc := stream.NewAccumulator(func(text string) {
		if err := s.store.ReplaceLastAssistantContent(sessionID, text); err != nil {
			s.log.Debug(logModule, "content update dropped", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	})
	res, err := stream.Assemble(ctx, body, acc, s.log)
	if err != nil {
		return res, err
	}
	s.log.Info(logModule, "stream finished", map[string]interface{}{
		"session_id":  sessionID,
		"deltas":      res.Deltas,
		"dropped":     res.Dropped,
		"terminated":  res.Terminated,
		"first_delta": res.FirstDelta.String(),
	})
	return res, nil
}

func (s *Sender) fail(sessionID string, err error) {
	msg := errorPrefix + err.Error()
	s.log.Error(logModule, "send failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	if uerr := s.store.ReplaceLastAssistantContent(sessionID, msg); uerr != nil {
		s.log.Warn(logModule, "error message dropped", map[string]interface{}{"error": uerr.Error()})
	}
	s.notifier.Notify(err.Error())
}

// stop keeps what was streamed before the caller cancelled. An answer
// cancelled before its first delta gets the apology.
func (s *Sender) stop(sessionID, partial string) {
	s.log.Info(logModule, "send cancelled", map[string]interface{}{"session_id": sessionID, "chars": len(partial)})
	if partial == "" {
		if err := s.store.ReplaceLastAssistantContent(sessionID, document.EmptyAnswer); err != nil {
			s.log.Warn(logModule, "apology dropped", map[string]interface{}{"error": err.Error()})
		}
	}
	s.notifier.Notify(stopNotice)
}

// save persists the finished exchange and adopts the stored ids.
func (s *Sender) save(ctx context.Context, sessionID, userID, assistantID string) {
	if !s.persisting() {
		return
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return
	}
	for _, localID := range []string{userID, assistantID} {
		msg, ok := findMessage(sess, localID)
		if !ok {
			continue
		}
		storedID, err := s.persist.SaveMessage(ctx, sessionID, msg)
		if err != nil {
			s.log.Warn(logModule, "failed to save message", map[string]interface{}{"session_id": sessionID, "role": string(msg.Role), "error": err.Error()})
			continue
		}
		if storedID == "" || storedID == localID {
			continue
		}
		if err := s.store.ReplaceMessageID(sessionID, localID, storedID); err != nil {
			s.log.Warn(logModule, "failed to adopt stored id", map[string]interface{}{"error": err.Error()})
		}
	}
}

func findMessage(sess session.Session, id string) (session.Message, bool) {
	for _, m := range sess.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return session.Message{}, false
}
