// Package history keeps the interactive prompt's input history in
// ~/.jz/history so arrow-key recall survives restarts.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jonztech/jz-cli/internal/config"
)

const fileName = "history"

// ErrAborted is returned by Prompt.Read when the user presses Ctrl+C.
var ErrAborted = liner.ErrPromptAborted

// Lines is the part of a line editor that reads and writes its history.
type Lines interface {
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
}

var fileMu sync.Mutex

// Path is the history file location.
func Path() string {
	return filepath.Join(config.Dir(), fileName)
}

// Restore loads the saved history into l. A missing file is not an error.
func Restore(l Lines) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	f, err := os.Open(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()
	if _, err := l.ReadHistory(f); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	return nil
}

// Persist writes l's history, readable by the owner only.
func Persist(l Lines) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(Path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if _, err := l.WriteHistory(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	return f.Close()
}

// Recent returns up to limit of the newest saved lines, oldest first.
// limit <= 0 returns all of them.
func Recent(limit int) ([]string, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	f, err := os.Open(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// Prompt is a line editor with persistent history.
type Prompt struct {
	line *liner.State
}

// NewPrompt takes over the terminal and restores the saved history.
// Ctrl+C aborts the current line with ErrAborted.
func NewPrompt() *Prompt {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	p := &Prompt{line: line}
	_ = Restore(line)
	return p
}

// Read shows prompt and returns the entered line. Non-blank lines are
// added to history. Ctrl+D yields io.EOF.
func (p *Prompt) Read(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrAborted
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and gives the terminal back.
func (p *Prompt) Close() error {
	err := Persist(p.line)
	if cerr := p.line.Close(); err == nil {
		err = cerr
	}
	return err
}
