package stream

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// Kind tags the result of parsing one line.
type Kind int

const (
	// Ignored lines carry nothing for the answer: blanks, comments,
	// non-data fields and well-formed payloads without text.
	Ignored Kind = iota
	// Delta lines carry a text fragment.
	Delta
	// Incomplete lines hold JSON that does not parse, usually because the
	// producer cut the payload. They are dropped, never retried.
	Incomplete
	// Done is the end-of-stream marker.
	Done
)

func (k Kind) String() string {
	switch k {
	case Delta:
		return "delta"
	case Incomplete:
		return "incomplete"
	case Done:
		return "done"
	default:
		return "ignored"
	}
}

// Event is the classification of one line.
type Event struct {
	Kind  Kind
	Delta string
	// Err explains why a data payload was not turned into a delta.
	Err error
}

// chunkPayload is the subset of a streaming chat-completion chunk we read:
// choices[0].delta.content.
type chunkPayload struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseLine classifies one decoded line.
func ParseLine(line string) Event {
	if line == "" || strings.HasPrefix(line, ":") {
		return Event{Kind: Ignored}
	}
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return Event{Kind: Ignored}
	}
	payload = strings.TrimSpace(payload)
	if payload == doneMarker {
		return Event{Kind: Done}
	}

	var chunk chunkPayload
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{Kind: Incomplete, Err: err}
		}
		return Event{Kind: Ignored, Err: err}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
		return Event{Kind: Ignored}
	}
	content := *chunk.Choices[0].Delta.Content
	if content == "" {
		return Event{Kind: Ignored}
	}
	return Event{Kind: Delta, Delta: content}
}
