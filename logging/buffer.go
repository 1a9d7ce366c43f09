package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Buffer is a slog.Handler that keeps the most recent records as formatted
// lines in a fixed-size ring. The TUI drains it into its trace pane.
type Buffer struct {
	level slog.Leveler
	attrs []slog.Attr
	ring  *ring
}

type ring struct {
	mu      sync.Mutex
	lines   []string
	start   int
	size    int
	unread  int
	maxSize int
}

// NewBuffer creates a buffer holding up to maxLines records at or above
// level. maxLines <= 0 uses 500.
func NewBuffer(level slog.Leveler, maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = 500
	}
	return &Buffer{
		level: level,
		ring:  &ring{lines: make([]string, maxLines), maxSize: maxLines},
	}
}

// Enabled implements slog.Handler.
func (b *Buffer) Enabled(_ context.Context, level slog.Level) bool {
	return level >= b.level.Level()
}

// Handle implements slog.Handler.
func (b *Buffer) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-5s %s", r.Level.String(), r.Message)
	for _, a := range b.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})
	b.ring.push(sb.String())
	return nil
}

// WithAttrs implements slog.Handler.
func (b *Buffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	nb := *b
	nb.attrs = append(append([]slog.Attr{}, b.attrs...), attrs...)
	return &nb
}

// WithGroup implements slog.Handler. Groups are flattened.
func (b *Buffer) WithGroup(string) slog.Handler {
	return b
}

// Lines returns every buffered line, oldest first.
func (b *Buffer) Lines() []string {
	r := b.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.lines[(r.start+i)%r.maxSize]
	}
	return out
}

// Drain returns the lines added since the previous Drain.
func (b *Buffer) Drain() []string {
	r := b.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.unread
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = r.lines[(r.start+r.size-n+i)%r.maxSize]
	}
	r.unread = 0
	return out
}

func (r *ring) push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size < r.maxSize {
		r.lines[(r.start+r.size)%r.maxSize] = line
		r.size++
	} else {
		// Overwrite oldest.
		r.lines[r.start] = line
		r.start = (r.start + 1) % r.maxSize
	}
	if r.unread < r.maxSize {
		r.unread++
	}
}
