package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	maxImageBytes    = 10 << 20
	maxDocumentBytes = 2 << 20
)

var (
	ErrNotImage            = errors.New("file is not an image")
	ErrUnsupportedDocument = errors.New("unsupported document format, use TXT or MD files")
	ErrTooLarge            = errors.New("file is too large")
)

// Document is text extracted from an attached file.
type Document struct {
	Name string
	Text string
}

// LoadImage reads an image file and returns it as a data URL.
func LoadImage(path string) (string, error) {
	data, err := readLimited(path, maxImageBytes)
	if err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s: %w (%s)", filepath.Base(path), ErrNotImage, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// LoadDocument reads a plain-text or markdown file.
func LoadDocument(path string) (*Document, error) {
	data, err := readLimited(path, maxDocumentBytes)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	mt := mimetype.Detect(data)
	if ext != ".txt" && ext != ".md" && !mt.Is("text/plain") {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedDocument)
	}
	return &Document{Name: filepath.Base(path), Text: string(data)}, nil
}

func readLimited(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s: %w (max %d MB)", filepath.Base(path), ErrTooLarge, limit>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return data, nil
}

// compose builds the outgoing message text with any document text placed
// before the user's own words.
func compose(in Input) string {
	if in.Document == nil || in.Document.Text == "" {
		return in.Text
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Document: %s]\n%s\n[End of document]", in.Document.Name, strings.TrimSpace(in.Document.Text))
	if in.Text != "" {
		b.WriteString("\n\n")
		b.WriteString(in.Text)
	}
	return b.String()
}
