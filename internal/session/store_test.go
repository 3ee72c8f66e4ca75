package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore() *Store {
	s := NewStore()
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func TestTitleFrom_Truncates(t *testing.T) {
	got := TitleFrom(strings.Repeat("a", 40))
	want := strings.Repeat("a", 30) + "..."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTitleFrom_ShortUnchanged(t *testing.T) {
	if got := TitleFrom("0123456789"); got != "0123456789" {
		t.Errorf("expected unchanged title, got %q", got)
	}
}

func TestTitleFrom_ExactlyThirty(t *testing.T) {
	in := strings.Repeat("b", 30)
	if got := TitleFrom(in); got != in {
		t.Errorf("30 characters must not be truncated, got %q", got)
	}
}

func TestTitleFrom_CountsRunes(t *testing.T) {
	in := strings.Repeat("é", 31)
	got := TitleFrom(in)
	if got != strings.Repeat("é", 30)+"..." {
		t.Errorf("expected rune-based truncation, got %q", got)
	}
}

func TestCreate_BecomesCurrent(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Create("b", "")

	if s.Current() != "b" {
		t.Errorf("expected current b, got %q", s.Current())
	}
	all := s.Sessions()
	if len(all) != 2 || all[0].ID != "b" {
		t.Errorf("expected newest first, got %+v", all)
	}
	if all[0].Title != DefaultTitle {
		t.Errorf("expected default title, got %q", all[0].Title)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	if _, err := s.Create("a", ""); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestDelete_CurrentClearsPointer(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Create("b", "")

	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Current() != "" {
		t.Errorf("expected pointer cleared, got %q", s.Current())
	}

	s.SetCurrent("a")
	s.Delete("missing")
	if s.Current() != "a" {
		t.Error("deleting an unknown session must not touch the pointer")
	}
}

func TestAppend_AdvancesUpdatedAt(t *testing.T) {
	s := newTestStore()
	created, _ := s.Create("a", "")

	idx, err := s.Append("a", Message{ID: "m1", Role: RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}

	got, _ := s.Get("a")
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Error("UpdatedAt must advance on append")
	}
	if got.Messages[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestAppend_UnknownSession(t *testing.T) {
	s := newTestStore()
	if _, err := s.Append("nope", Message{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceLastAssistantContent(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "u", Role: RoleUser, Content: "q"})
	s.Append("a", Message{ID: "p", Role: RoleAssistant})

	if err := s.ReplaceLastAssistantContent("a", "answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.Get("a")
	if got.Messages[1].Content != "answer" {
		t.Errorf("expected assistant content replaced, got %q", got.Messages[1].Content)
	}
	if got.Messages[0].Content != "q" {
		t.Error("user message must not change")
	}
}

func TestReplaceLastAssistantContent_RefusesOlderMessages(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "p", Role: RoleAssistant, Content: "old"})
	s.Append("a", Message{ID: "u", Role: RoleUser, Content: "q"})

	if err := s.ReplaceLastAssistantContent("a", "new"); !errors.Is(err, ErrNoAssistant) {
		t.Fatalf("expected ErrNoAssistant, got %v", err)
	}
	got, _ := s.Get("a")
	if got.Messages[0].Content != "old" {
		t.Error("older assistant message must stay immutable")
	}
}

func TestAttachDocument(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "p", Role: RoleAssistant})

	s.AttachDocument("a", DocumentRef{URL: "file:///x.pdf", Filename: "x.pdf"})

	got, _ := s.Get("a")
	if got.Messages[0].Document == nil || got.Messages[0].Document.Filename != "x.pdf" {
		t.Fatalf("expected document attached, got %+v", got.Messages[0].Document)
	}
}

func TestReplaceMessageID(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "local", Role: RoleAssistant})

	if err := s.ReplaceMessageID("a", "local", "db-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Get("a")
	if got.Messages[0].ID != "db-1" {
		t.Errorf("expected id replaced, got %q", got.Messages[0].ID)
	}
	if err := s.ReplaceMessageID("a", "local", "db-2"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "u", Role: RoleUser, Content: "q"})

	snap, _ := s.Get("a")
	snap.Messages[0].Content = "tampered"

	got, _ := s.Get("a")
	if got.Messages[0].Content != "q" {
		t.Error("snapshots must not alias store state")
	}
}

func TestClear_DropsMessages(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "u", Role: RoleUser})

	s.Clear("a")

	got, _ := s.Get("a")
	if len(got.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(got.Messages))
	}
}

func TestLoad_KeepsCurrentWhenPresent(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")

	s.Load([]Session{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}})
	if s.Current() != "a" {
		t.Errorf("expected current kept, got %q", s.Current())
	}

	s.Load([]Session{{ID: "b", Title: "B"}})
	if s.Current() != "" {
		t.Errorf("expected current cleared, got %q", s.Current())
	}
}

func TestSubscribe_ReceivesContentUpdates(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")
	s.Append("a", Message{ID: "p", Role: RoleAssistant})

	var got []string
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Kind == EventContentUpdated {
			got = append(got, ev.Message.Content)
		}
	})

	s.ReplaceLastAssistantContent("a", "he")
	s.ReplaceLastAssistantContent("a", "hello")
	unsubscribe()
	s.ReplaceLastAssistantContent("a", "ignored")

	if strings.Join(got, "|") != "he|hello" {
		t.Errorf("unexpected events: %v", got)
	}
}

func TestDeriveTitle(t *testing.T) {
	s := newTestStore()
	s.Create("a", "")

	title, err := s.DeriveTitle("a", strings.Repeat("a", 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != strings.Repeat("a", 30)+"..." {
		t.Errorf("unexpected title %q", title)
	}
}
