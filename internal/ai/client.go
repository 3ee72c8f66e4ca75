package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	headerTimeout    = 60 * time.Second
	maxErrorBody     = 64 * 1024
	unavailableError = "AI service temporarily unavailable"
)

// Client posts chat requests to the gateway and hands back the streamed body.
type Client struct {
	url        string
	token      string
	anonKey    string
	httpClient *http.Client
}

// NewClient returns a client for the gateway at url. token is the caller's
// session token; anonKey is used when token is empty.
func NewClient(url, token, anonKey string) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &Client{
		url:     url,
		token:   token,
		anonKey: anonKey,
		// No overall timeout: the body is read for as long as the answer streams.
		httpClient: &http.Client{Transport: transport},
	}
}

// NewClientWithHTTP lets tests and callers supply their own http.Client.
func NewClientWithHTTP(url, token, anonKey string, hc *http.Client) *Client {
	return &Client{url: url, token: token, anonKey: anonKey, httpClient: hc}
}

func (c *Client) bearer() string {
	if c.token != "" {
		return c.token
	}
	return c.anonKey
}

// Stream posts req and returns the response body on success.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if req.CustomKnowledge == nil {
		req.CustomKnowledge = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if b := c.bearer(); b != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("could not reach gateway at %s: %w", c.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		apiErr.Err = ErrRateLimited
	case http.StatusPaymentRequired:
		apiErr.Err = ErrQuotaExceeded
	case http.StatusForbidden:
		apiErr.Err = ErrForbidden
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		apiErr.Message = body.Error
		return apiErr
	}

	switch apiErr.Err {
	case ErrRateLimited:
		apiErr.Message = "Rate limit exceeded. Please try again in a moment."
	case ErrQuotaExceeded:
		apiErr.Message = "Usage limit reached. Please add credits to continue."
	case ErrForbidden:
		apiErr.Message = "Developer mode is not enabled for this account."
	default:
		apiErr.Message = unavailableError
	}
	return apiErr
}
