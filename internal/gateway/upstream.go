package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// contentPart is one element of a multi-part message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// upstreamMessage carries either a string or a []contentPart as content.
type upstreamMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type upstreamRequest struct {
	Model    string            `json:"model"`
	Messages []upstreamMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

// upstreamError is a non-2xx answer from the completion provider.
type upstreamError struct {
	Status int
	Body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// upstream is an OpenAI-compatible chat-completions endpoint.
type upstream struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

func newUpstream(url, apiKey, model string, headerTimeout time.Duration) *upstream {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &upstream{url: url, apiKey: apiKey, model: model, client: &http.Client{Transport: transport}}
}

// open starts a streamed completion and returns its body.
func (u *upstream) open(ctx context.Context, messages []upstreamMessage) (io.ReadCloser, error) {
	body, err := json.Marshal(upstreamRequest{Model: u.model, Messages: messages, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach upstream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &upstreamError{Status: resp.StatusCode, Body: string(raw)}
	}
	return resp.Body, nil
}

// toUpstream converts client turns, turning image turns into multi-part
// content.
func toUpstream(system string, msgs []chatMessage) []upstreamMessage {
	out := make([]upstreamMessage, 0, len(msgs)+1)
	out = append(out, upstreamMessage{Role: "system", Content: system})
	for _, m := range msgs {
		if m.Image == "" {
			out = append(out, upstreamMessage{Role: m.Role, Content: m.Content})
			continue
		}
		text := m.Content
		if text == "" {
			text = "Please analyze this image."
		}
		out = append(out, upstreamMessage{Role: m.Role, Content: []contentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &imageURL{URL: m.Image}},
		}})
	}
	return out
}
