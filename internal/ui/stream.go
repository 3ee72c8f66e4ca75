package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jonztech/jz-cli/internal/session"
)

// StreamView prints an assistant answer as it grows. It follows the
// store's content events for one session and writes only the new suffix
// of each update, so the terminal shows the typing effect.
type StreamView struct {
	mu        sync.Mutex
	w         io.Writer
	prefix    string
	spinner   *Spinner
	sessionID string
	printed   string
	latest    string
	diverged  bool
}

// NewStreamView writes to w, indenting the first line with prefix. sp,
// when not nil, is stopped on the first printed fragment.
func NewStreamView(w io.Writer, prefix string, sp *Spinner) *StreamView {
	return &StreamView{w: w, prefix: prefix, spinner: sp}
}

// Watch subscribes to store updates of the current session's newest
// assistant message. The session is picked on the first content update,
// so Watch may be called before the session exists.
func (v *StreamView) Watch(store *session.Store) (stop func()) {
	return store.Subscribe(func(ev session.Event) {
		if ev.Kind != session.EventContentUpdated || ev.Message.Role != session.RoleAssistant {
			return
		}
		v.mu.Lock()
		if v.sessionID == "" {
			v.sessionID = ev.SessionID
		}
		match := v.sessionID == ev.SessionID
		v.mu.Unlock()
		if match {
			v.Update(ev.Message.Content)
		}
	})
}

// Update shows text, the full answer so far.
func (v *StreamView) Update(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.latest = text
	if !strings.HasPrefix(text, v.printed) {
		// Final post-processing rewrote the answer; Finish prints it.
		v.diverged = true
		return
	}
	suffix := text[len(v.printed):]
	if suffix == "" {
		return
	}
	if v.printed == "" {
		if v.spinner != nil {
			v.spinner.Stop()
		}
		fmt.Fprint(v.w, v.prefix)
	}
	fmt.Fprint(v.w, suffix)
	v.printed = text
}

// Finish ends the answer and returns the final text. When the final text
// is not a continuation of what was streamed, it is printed after a rule,
// through render when given.
func (v *StreamView) Finish(render func(string) string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.spinner != nil {
		v.spinner.Stop()
	}
	if v.printed != "" && !strings.HasSuffix(v.printed, "\n") {
		fmt.Fprintln(v.w)
	}
	if v.diverged && v.latest != v.printed {
		out := v.latest
		if render != nil {
			out = render(out)
		}
		if v.printed != "" {
			fmt.Fprintln(v.w, Dim("  ───"))
		}
		fmt.Fprint(v.w, v.prefix, out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Fprintln(v.w)
		}
	}
	fmt.Fprintln(v.w)
	return v.latest
}

// Streamed reports whether any fragment was printed.
func (v *StreamView) Streamed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.printed != ""
}
