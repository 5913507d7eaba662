// Package buffer holds the bounded in-memory FIFO of recent messages. It is
// always live regardless of durable store availability and receives a shadow
// write on every send.
package buffer

import (
	"sync"

	"chatrelay/pkg/types"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 100

// Buffer is a fixed-capacity FIFO of recent messages, oldest evicted first.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	entries  []types.Message
}

// New creates a buffer holding at most capacity messages.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		entries:  make([]types.Message, 0, capacity),
	}
}

// Push appends a message, evicting the oldest entries once capacity is
// exceeded.
func (b *Buffer) Push(msg types.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, msg)
	if overflow := len(b.entries) - b.capacity; overflow > 0 {
		b.entries = append(b.entries[:0], b.entries[overflow:]...)
	}
}

// Recent returns the last limit messages in chronological order, or fewer if
// the buffer holds fewer. The returned slice is a copy.
func (b *Buffer) Recent(limit int) []types.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > len(b.entries) {
		limit = len(b.entries)
	}
	out := make([]types.Message, limit)
	copy(out, b.entries[len(b.entries)-limit:])
	return out
}

// Len reports the current number of buffered messages.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
