// Package ringlog keeps the most recent log lines in memory.
//
// A Buffer is an io.Writer meant to sit next to the regular log sink in an
// io.MultiWriter. It holds at most its capacity of entries and overwrites the
// oldest one when full.
package ringlog

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 1000

type Entry struct {
	ID   string
	Time time.Time
	Line []byte
}

type entryJSON struct {
	ID      string          `json:"id"`
	Time    time.Time       `json:"timestamp"`
	Record  json.RawMessage `json:"record,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MarshalJSON embeds JSON log lines as objects and keeps other lines as text.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{ID: e.ID, Time: e.Time}

	if json.Valid(e.Line) {
		out.Record = e.Line
	} else {
		out.Message = string(e.Line)
	}

	return json.Marshal(out)
}

type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Write stores p as one entry. Trailing newlines are stripped and empty
// writes are ignored.
func (b *Buffer) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\r\n")
	if len(line) == 0 {
		return len(p), nil
	}

	entry := Entry{
		ID:   uuid.NewString(),
		Time: b.now().UTC(),
		Line: bytes.Clone(line),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}

	return len(p), nil
}

// Entries returns the stored entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]Entry(nil), b.entries[:b.next]...)
	}

	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)

	return out
}

func (b *Buffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.full {
		return len(b.entries)
	}

	return b.next
}

func (b *Buffer) capacity() int {
	return len(b.entries)
}
