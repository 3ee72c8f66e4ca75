package stream

import "strings"

// Accumulator grows the answer one delta at a time and publishes the whole
// answer after every append, which gives the typing effect.
type Accumulator struct {
	buf     strings.Builder
	deltas  int
	publish func(text string)
}

// NewAccumulator returns an empty accumulator. publish may be nil.
func NewAccumulator(publish func(text string)) *Accumulator {
	return &Accumulator{publish: publish}
}

// Apply appends delta exactly once and returns the updated answer.
func (a *Accumulator) Apply(delta string) string {
	a.buf.WriteString(delta)
	a.deltas++
	text := a.buf.String()
	if a.publish != nil {
		a.publish(text)
	}
	return text
}

// Text is the answer so far.
func (a *Accumulator) Text() string {
	return a.buf.String()
}

// Deltas is the number of applied deltas.
func (a *Accumulator) Deltas() int {
	return a.deltas
}
