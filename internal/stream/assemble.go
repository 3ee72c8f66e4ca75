package stream

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonztech/jz-cli/internal/logger"
)

const (
	readSize  = 4 * 1024
	logModule = "stream"
)

// Result summarizes one assembled stream.
type Result struct {
	Text       string
	Terminated bool // a [DONE] line was seen
	Deltas     int
	Dropped    int // payloads that did not parse
	FirstDelta time.Duration
	Elapsed    time.Duration
}

type assembly struct {
	acc   *Accumulator
	log   logger.Logger
	start time.Time
	res   Result
}

// handle applies one line and reports whether the stream is finished.
func (a *assembly) handle(line string) bool {
	ev := ParseLine(line)
	switch ev.Kind {
	case Delta:
		if a.res.Deltas == 0 {
			a.res.FirstDelta = time.Since(a.start)
		}
		a.acc.Apply(ev.Delta)
		a.res.Deltas++
	case Incomplete:
		a.res.Dropped++
		a.log.Debug(logModule, "dropped unparsable payload", map[string]interface{}{
			"error": ev.Err.Error(),
			"bytes": len(line),
		})
	case Done:
		a.res.Terminated = true
		return true
	default:
		if ev.Err != nil {
			a.log.Debug(logModule, "ignored payload", map[string]interface{}{"error": ev.Err.Error()})
		}
	}
	return false
}

// Assemble reads r until EOF or a [DONE] line, feeding every delta into acc.
// A leftover line without a trailing newline is replayed once at EOF unless
// the stream already terminated. Unparsable payloads never abort the
// stream; read errors and context cancellation do, and the partial result is
// returned with the error.
func Assemble(ctx context.Context, r io.Reader, acc *Accumulator, log logger.Logger) (Result, error) {
	a := &assembly{acc: acc, log: log, start: time.Now()}
	dec := NewDecoder()
	src := UTF8Reader(r)
	buf := make([]byte, readSize)

	finish := func() Result {
		a.res.Text = acc.Text()
		a.res.Elapsed = time.Since(a.start)
		return a.res
	}

read:
	for {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		n, err := src.Read(buf)
		if n > 0 {
			for line := range dec.Feed(buf[:n]) {
				if a.handle(line) {
					break read
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(), ctxErr
			}
			return finish(), fmt.Errorf("read stream: %w", err)
		}
	}

	if !a.res.Terminated {
		if rest, ok := dec.Flush(); ok {
			a.handle(rest)
		}
	}
	return finish(), nil
}
