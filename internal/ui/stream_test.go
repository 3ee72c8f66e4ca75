package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonztech/jz-cli/internal/session"
)

func TestStreamView_PrintsSuffixes(t *testing.T) {
	var buf bytes.Buffer
	v := NewStreamView(&buf, "  ", nil)

	v.Update("Hel")
	v.Update("Hello")
	v.Update("Hello")
	v.Update("Hello, world")
	final := v.Finish(nil)

	if final != "Hello, world" {
		t.Errorf("expected final text, got %q", final)
	}
	if buf.String() != "  Hello, world\n\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestStreamView_RewrittenFinalIsPrinted(t *testing.T) {
	var buf bytes.Buffer
	v := NewStreamView(&buf, "", nil)

	v.Update("[PDF_CONTENT]Doc")
	v.Update("Your PDF document is ready!")
	v.Finish(func(s string) string { return "<" + s + ">" })

	out := buf.String()
	if !strings.HasPrefix(out, "[PDF_CONTENT]Doc\n") {
		t.Errorf("expected streamed text first, got %q", out)
	}
	if !strings.Contains(out, "<Your PDF document is ready!>") {
		t.Errorf("expected rendered final text, got %q", out)
	}
}

func TestStreamView_NothingStreamed(t *testing.T) {
	var buf bytes.Buffer
	v := NewStreamView(&buf, "  ", nil)

	v.Update("")
	if v.Streamed() {
		t.Error("empty update must not count as streamed")
	}
	if got := v.Finish(nil); got != "" {
		t.Errorf("expected empty final, got %q", got)
	}
}

func TestStreamView_WatchFollowsOneSession(t *testing.T) {
	store := session.NewStore()
	store.Create("a", "")
	store.Append("a", session.Message{ID: "p", Role: session.RoleAssistant})
	store.Create("b", "")
	store.Append("b", session.Message{ID: "q", Role: session.RoleAssistant})

	var buf bytes.Buffer
	v := NewStreamView(&buf, "", nil)
	stop := v.Watch(store)

	store.ReplaceLastAssistantContent("b", "one")
	store.ReplaceLastAssistantContent("a", "other session")
	store.ReplaceLastAssistantContent("b", "one two")
	stop()
	store.ReplaceLastAssistantContent("b", "one two three")

	if got := v.Finish(nil); got != "one two" {
		t.Errorf("expected one two, got %q", got)
	}
}

func TestRenderMarkdown_Fallback(t *testing.T) {
	out := renderMarkdown("# Title\n\nbody", 40)
	if !strings.Contains(out, "Title") || !strings.Contains(out, "body") {
		t.Errorf("expected rendered text to keep content, got %q", out)
	}
}
