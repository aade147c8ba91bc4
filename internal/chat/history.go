package chat

import (
	"sync"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// MessageRing is a fixed-size circular buffer of transcript entries backing
// the `history` command. Long sessions keep only the most recent window so
// memory stays bounded no matter how chatty a user gets.
type MessageRing struct {
	msgs []domain.ChatMessage
	size int
	head int // write position
	tail int // read position
	full bool
	mu   sync.RWMutex
}

// NewMessageRing creates a ring holding at most size messages.
// Default size is 50 which covers the visible scrollback of the chat widget.
func NewMessageRing(size int) *MessageRing {
	if size <= 0 {
		size = 50
	}
	return &MessageRing{
		msgs: make([]domain.ChatMessage, size),
		size: size,
	}
}

// Push appends a message. When the ring is full, the oldest entry is
// overwritten.
func (r *MessageRing) Push(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		r.tail = (r.tail + 1) % r.size
	}
	r.msgs[r.head] = msg
	r.head = (r.head + 1) % r.size
	if r.head == r.tail {
		r.full = true
	}
}

// Messages returns the buffered entries in arrival order, oldest first.
func (r *MessageRing) Messages() []domain.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full && r.head == r.tail {
		return []domain.ChatMessage{}
	}

	if r.full {
		out := make([]domain.ChatMessage, 0, r.size)
		out = append(out, r.msgs[r.tail:]...)
		out = append(out, r.msgs[:r.head]...)
		return out
	}

	out := make([]domain.ChatMessage, r.head-r.tail)
	copy(out, r.msgs[r.tail:r.head])
	return out
}

// Len returns the number of buffered messages.
func (r *MessageRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.full {
		return r.size
	}
	return r.head - r.tail
}

// Reset clears the ring.
func (r *MessageRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = 0
	r.tail = 0
	r.full = false
}

// Capacity returns the maximum number of messages the ring can hold.
func (r *MessageRing) Capacity() int {
	return r.size
}
