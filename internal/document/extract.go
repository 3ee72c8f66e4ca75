// Package document finds the generate-a-document directive in a finished
// answer and turns it into display text plus a generated file reference.
package document

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	OpenMarker  = "[PDF_CONTENT]"
	CloseMarker = "[/PDF_CONTENT]"

	DefaultTitle  = "JonzTech AI Document"
	ReadySentence = "Your PDF document is ready! Use the download link below."
	EmptyAnswer   = "I apologize, but I couldn't generate a response. Please try again."

	maxTitleRunes = 100
)

// Reference points at a generated artifact.
type Reference struct {
	URL      string
	Filename string
}

// Generator renders directive content into a downloadable artifact.
type Generator interface {
	Generate(ctx context.Context, content, title string) (Reference, error)
}

// Directive is a parsed [PDF_CONTENT] span.
type Directive struct {
	Content  string // inner text, trimmed
	Title    string
	Filename string
	Display  string // answer text with the span removed
}

// Extract locates the first complete directive span in text.
func Extract(text string) (Directive, bool) {
	start := strings.Index(text, OpenMarker)
	if start < 0 {
		return Directive{}, false
	}
	innerStart := start + len(OpenMarker)
	rel := strings.Index(text[innerStart:], CloseMarker)
	if rel < 0 {
		return Directive{}, false
	}
	end := innerStart + rel

	content := strings.TrimSpace(text[innerStart:end])
	title := titleOf(content)
	display := strings.TrimSpace(text[:start] + text[end+len(CloseMarker):])
	if display == "" {
		display = ReadySentence
	}

	return Directive{
		Content:  content,
		Title:    title,
		Filename: Filename(title),
		Display:  display,
	}, true
}

func titleOf(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimSpace(first)
	if first == "" || utf8.RuneCountInString(first) >= maxTitleRunes {
		return DefaultTitle
	}
	return first
}

// Filename maps a title to a file name: every rune outside [A-Za-z0-9]
// becomes '_' and ".pdf" is appended.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(".pdf")
	return b.String()
}

// Outcome is the final state of an assistant answer.
type Outcome struct {
	Text     string
	Document *Reference
	// GenerateErr is set when a directive was found but rendering failed;
	// Text then holds the stripped display text.
	GenerateErr error
}

// Finalize turns the assembled answer into what the user sees. An empty
// answer becomes an apology, an answer without a directive is kept verbatim,
// and a directive is handed to gen.
func Finalize(ctx context.Context, text string, gen Generator) Outcome {
	if text == "" {
		return Outcome{Text: EmptyAnswer}
	}
	d, ok := Extract(text)
	if !ok {
		return Outcome{Text: text}
	}
	if gen == nil {
		return Outcome{Text: d.Display, GenerateErr: ErrNoGenerator}
	}
	ref, err := gen.Generate(ctx, d.Content, d.Title)
	if err != nil {
		return Outcome{Text: d.Display, GenerateErr: err}
	}
	if ref.Filename == "" {
		ref.Filename = d.Filename
	}
	return Outcome{Text: d.Display, Document: &ref}
}
