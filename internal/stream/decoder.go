// Package stream assembles a streamed chat-completion answer: it frames a
// byte stream into lines, classifies SSE-style lines into delta events and
// accumulates the deltas into the growing answer.
package stream

import (
	"bytes"
	"io"
	"iter"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder splits raw chunks into complete lines. A trailing partial line is
// kept until a later chunk completes it. A Decoder serves one stream only.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty line decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed buffers chunk and yields every complete line, split on '\n' with a
// single trailing '\r' removed. Lines are consumed from the buffer as they
// are yielded; lines left unvisited when the caller stops early stay
// buffered.
func (d *Decoder) Feed(chunk []byte) iter.Seq[string] {
	d.buf = append(d.buf, chunk...)
	return func(yield func(string) bool) {
		for {
			i := bytes.IndexByte(d.buf, '\n')
			if i < 0 {
				return
			}
			line := strings.TrimSuffix(string(d.buf[:i]), "\r")
			d.buf = d.buf[i+1:]
			if !yield(line) {
				return
			}
		}
	}
}

// Flush returns the buffered remainder, for streams whose last line has no
// newline. It reports false when nothing is buffered.
func (d *Decoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	rest := strings.TrimSuffix(string(d.buf), "\r")
	d.buf = nil
	return rest, true
}

// Buffered is the number of bytes waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// UTF8Reader decodes r as UTF-8, holding back multi-byte sequences split
// across reads and replacing invalid bytes with U+FFFD.
func UTF8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8.NewDecoder())
}
