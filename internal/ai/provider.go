package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrQuotaExceeded = errors.New("usage limit reached")
	ErrForbidden     = errors.New("forbidden")
	ErrNoBody        = errors.New("response has no body")
)

// Streamer is anything that can open a streamed completion. The returned
// body carries SSE-style "data: " lines and must be closed by the caller.
type Streamer interface {
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
	Err     error // one of the sentinels above, or nil
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gateway error (status %d)", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
