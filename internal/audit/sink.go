// Package audit defines the narration sink the control evaluator writes its
// per-control lines to. The sink is a collaborator, not part of the core
// contract: console for interactive use, buffer for tests and receipts.
package audit

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives one formatted line per audit event, in evaluation order.
type Sink interface {
	Linef(format string, args ...any)
}

// Console writes lines to a writer, typically stdout.
type Console struct {
	W io.Writer
}

func (c *Console) Linef(format string, args ...any) {
	fmt.Fprintf(c.W, format+"\n", args...)
}

// Buffer captures lines for tests and for embedding narration in reports.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *Buffer) Linef(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the captured lines.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

type discard struct{}

func (discard) Linef(string, ...any) {}

// Discard returns a sink that drops everything.
func Discard() Sink { return discard{} }

// Tee fans one line out to several sinks.
func Tee(sinks ...Sink) Sink { return tee(sinks) }

type tee []Sink

func (t tee) Linef(format string, args ...any) {
	for _, s := range t {
		s.Linef(format, args...)
	}
}
