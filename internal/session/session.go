// Package session holds chat sessions in memory. The Store is the single
// owner of every session and message list; all mutations go through it and
// are serialized by one mutex.
package session

import (
	"time"
	"unicode/utf8"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// DefaultTitle names a session before its first message.
	DefaultTitle = "New Chat"

	titleMaxRunes = 30
	titleEllipsis = "..."
)

// DocumentRef points at a generated downloadable document.
type DocumentRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Message is a single chat message.
type Message struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Image     string       `json:"image,omitempty"` // data URL or remote URL
	Document  *DocumentRef `json:"document,omitempty"`
}

// Session is one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastAssistant returns the index of the most recent assistant message, or -1.
func (s *Session) LastAssistant() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return i
		}
	}
	return -1
}

func (s *Session) clone() Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	for i := range cp.Messages {
		if d := cp.Messages[i].Document; d != nil {
			ref := *d
			cp.Messages[i].Document = &ref
		}
	}
	return cp
}

// TitleFrom derives a session title from the first user message: the first
// 30 characters, with an ellipsis when the text is longer.
func TitleFrom(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxRunes]) + titleEllipsis
}
