package session

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrExists          = errors.New("session already exists")
	ErrNoAssistant     = errors.New("last message is not an assistant message")
	ErrMessageNotFound = errors.New("message not found")
)

// EventKind classifies a store change.
type EventKind int

const (
	EventCreated EventKind = iota
	EventDeleted
	EventCleared
	EventLoaded
	EventTitleChanged
	EventMessageAppended
	EventContentUpdated
	EventDocumentAttached
)

// Event describes one store mutation. Message is set for message events.
type Event struct {
	Kind      EventKind
	SessionID string
	Title     string
	Message   Message
}

// Store is an ordered collection of sessions, newest first, with at most
// one current session.
type Store struct {
	mu       sync.Mutex
	sessions []*Session
	current  string
	subs     map[int]func(Event)
	nextSub  int
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Event)), now: time.Now}
}

// Subscribe registers fn for every subsequent mutation. Callbacks run after
// the mutation is applied, outside the store lock, on the mutating
// goroutine. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// emit must be called without the lock held.
func (s *Store) emit(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *Store) find(id string) *Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// Create adds an empty session, makes it current and returns a copy.
func (s *Store) Create(id, title string) (Session, error) {
	s.mu.Lock()
	if s.find(id) != nil {
		s.mu.Unlock()
		return Session{}, ErrExists
	}
	if title == "" {
		title = DefaultTitle
	}
	now := s.now()
	sess := &Session{ID: id, Title: title, Messages: []Message{}, CreatedAt: now, UpdatedAt: now}
	s.sessions = append([]*Session{sess}, s.sessions...)
	s.current = id
	cp := sess.clone()
	s.mu.Unlock()

	s.emit(Event{Kind: EventCreated, SessionID: id, Title: title})
	return cp, nil
}

// Load replaces every session, e.g. with the result of a persistence
// round trip. The current pointer survives if its session is still present.
func (s *Store) Load(sessions []Session) {
	s.mu.Lock()
	s.sessions = make([]*Session, 0, len(sessions))
	for i := range sessions {
		cp := sessions[i].clone()
		s.sessions = append(s.sessions, &cp)
	}
	if s.find(s.current) == nil {
		s.current = ""
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventLoaded})
}

// Sessions returns a snapshot of all sessions in store order.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.clone()
	}
	return out
}

// Get returns a snapshot of one session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(id)
	if sess == nil {
		return Session{}, ErrNotFound
	}
	return sess.clone(), nil
}

// Current returns the id of the current session, or "".
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent selects a session. An empty id clears the pointer.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.find(id) == nil {
		return ErrNotFound
	}
	s.current = id
	return nil
}

// Delete removes a session; deleting the current session clears the pointer.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.sessions, func(sess *Session) bool { return sess.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sessions = slices.Delete(s.sessions, idx, idx+1)
	if s.current == id {
		s.current = ""
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventDeleted, SessionID: id})
	return nil
}

// Clear drops every message of a session.
func (s *Store) Clear(id string) error {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return ErrNotFound
	}
	sess.Messages = []Message{}
	sess.UpdatedAt = s.now()
	s.mu.Unlock()

	s.emit(Event{Kind: EventCleared, SessionID: id})
	return nil
}

// Append adds msg to the end of a session and returns its index. A zero
// timestamp is set to now.
func (s *Store) Append(id string, msg Message) (int, error) {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return 0, ErrNotFound
	}
	now := s.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = now
	idx := len(sess.Messages) - 1
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageAppended, SessionID: id, Message: msg})
	return idx, nil
}

// DeriveTitle sets the session title from the first user message.
func (s *Store) DeriveTitle(id, text string) (string, error) {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return "", ErrNotFound
	}
	sess.Title = TitleFrom(text)
	title := sess.Title
	s.mu.Unlock()

	s.emit(Event{Kind: EventTitleChanged, SessionID: id, Title: title})
	return title, nil
}

// mutateLastAssistant applies fn to the newest message, which must be an
// assistant message; earlier messages are immutable.
func (s *Store) mutateLastAssistant(id string, kind EventKind, fn func(m *Message)) error {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return ErrNotFound
	}
	last := len(sess.Messages) - 1
	if last < 0 || sess.Messages[last].Role != RoleAssistant {
		s.mu.Unlock()
		return ErrNoAssistant
	}
	fn(&sess.Messages[last])
	msg := sess.Messages[last]
	if msg.Document != nil {
		ref := *msg.Document
		msg.Document = &ref
	}
	s.mu.Unlock()

	s.emit(Event{Kind: kind, SessionID: id, Message: msg})
	return nil
}

// ReplaceLastAssistantContent overwrites the content of the newest
// assistant message.
func (s *Store) ReplaceLastAssistantContent(id, content string) error {
	return s.mutateLastAssistant(id, EventContentUpdated, func(m *Message) {
		m.Content = content
	})
}

// AttachDocument sets the generated document of the newest assistant message.
func (s *Store) AttachDocument(id string, ref DocumentRef) error {
	return s.mutateLastAssistant(id, EventDocumentAttached, func(m *Message) {
		m.Document = &ref
	})
}

// ReplaceMessageID swaps a local placeholder id for a durable one.
func (s *Store) ReplaceMessageID(id, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(id)
	if sess == nil {
		return ErrNotFound
	}
	for i := range sess.Messages {
		if sess.Messages[i].ID == oldID {
			sess.Messages[i].ID = newID
			return nil
		}
	}
	return ErrMessageNotFound
}
