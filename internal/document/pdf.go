package document

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

var ErrNoGenerator = errors.New("no document generator configured")

// PDFGenerator writes A4 PDFs into Dir and returns file:// references.
type PDFGenerator struct {
	Dir    string
	Author string
}

func NewPDFGenerator(dir string) *PDFGenerator {
	return &PDFGenerator{Dir: dir, Author: "JonzTech AI"}
}

func (g *PDFGenerator) Generate(ctx context.Context, content, title string) (Reference, error) {
	if err := ctx.Err(); err != nil {
		return Reference{}, err
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return Reference{}, fmt.Errorf("failed to create documents directory: %w", err)
	}

	filename := Filename(title)
	path := filepath.Join(g.Dir, strings.TrimSuffix(filename, ".pdf")+"-"+uuid.NewString()[:8]+".pdf")

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(g.Author, true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(body(content, title)), "", "L", false)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return Reference{}, fmt.Errorf("failed to write pdf: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return Reference{URL: u.String(), Filename: filename}, nil
}

// body drops the first line when it already serves as the heading.
func body(content, title string) string {
	first, rest, found := strings.Cut(content, "\n")
	if found && strings.TrimSpace(first) == title {
		return strings.TrimSpace(rest)
	}
	return content
}
