package chat

import (
	"context"
	"fmt"

	"github.com/jonztech/jz-cli/internal/session"
)

// NewSession creates an empty session and makes it current. Signed-in
// callers get a stored session; if storing fails, or nobody is signed in,
// the session lives in memory under a local id.
func (s *Sender) NewSession(ctx context.Context) (string, error) {
	id := ""
	if s.persisting() {
		stored, err := s.persist.CreateSession(ctx, session.DefaultTitle)
		if err != nil {
			s.log.Warn(logModule, "failed to store session, keeping it local", map[string]interface{}{"error": err.Error()})
		}
		id = stored
	}
	if id == "" {
		id = s.newID()
	}
	if _, err := s.store.Create(id, session.DefaultTitle); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// DeleteSession removes a session locally and from storage.
func (s *Sender) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.persisting() {
		if err := s.persist.DeleteSession(ctx, id); err != nil {
			s.log.Warn(logModule, "failed to delete stored session", map[string]interface{}{"session_id": id, "error": err.Error()})
		}
	}
	return nil
}

// ClearSession drops every message of a session and keeps the session.
func (s *Sender) ClearSession(ctx context.Context, id string) error {
	if err := s.store.Clear(id); err != nil {
		return err
	}
	if s.persisting() {
		if err := s.persist.ClearSessionMessages(ctx, id); err != nil {
			s.log.Warn(logModule, "failed to clear stored messages", map[string]interface{}{"session_id": id, "error": err.Error()})
		}
	}
	return nil
}

// Refresh replaces the in-memory sessions with the stored ones.
func (s *Sender) Refresh(ctx context.Context) error {
	if !s.persisting() {
		return nil
	}
	sessions, err := s.persist.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	s.store.Load(sessions)
	return nil
}

// Switch makes id the current session.
func (s *Sender) Switch(id string) error {
	return s.store.SetCurrent(id)
}
