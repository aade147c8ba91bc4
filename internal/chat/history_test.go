package chat

import (
	"fmt"
	"testing"

	"github.com/shivin4/RAGSebi/internal/domain"
)

func ringMsg(i int) domain.ChatMessage {
	return domain.ChatMessage{ID: fmt.Sprintf("m-%d", i), Text: fmt.Sprintf("message %d", i)}
}

func TestMessageRingEmpty(t *testing.T) {
	t.Parallel()

	r := NewMessageRing(5)
	if got := r.Messages(); len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestMessageRingPartialFill(t *testing.T) {
	t.Parallel()

	r := NewMessageRing(5)
	for i := 0; i < 3; i++ {
		r.Push(ringMsg(i))
	}
	msgs := r.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.ID != fmt.Sprintf("m-%d", i) {
			t.Fatalf("order broken at %d: %q", i, m.ID)
		}
	}
}

func TestMessageRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	r := NewMessageRing(3)
	for i := 0; i < 7; i++ {
		r.Push(ringMsg(i))
	}
	msgs := r.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	// Only the three newest survive, oldest first.
	for i, want := range []string{"m-4", "m-5", "m-6"} {
		if msgs[i].ID != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, msgs[i].ID, want)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
}

func TestMessageRingReset(t *testing.T) {
	t.Parallel()

	r := NewMessageRing(3)
	for i := 0; i < 5; i++ {
		r.Push(ringMsg(i))
	}
	r.Reset()
	if r.Len() != 0 || len(r.Messages()) != 0 {
		t.Fatal("expected an empty ring after reset")
	}
	r.Push(ringMsg(9))
	if msgs := r.Messages(); len(msgs) != 1 || msgs[0].ID != "m-9" {
		t.Fatalf("ring unusable after reset: %v", msgs)
	}
}

func TestMessageRingDefaultCapacity(t *testing.T) {
	t.Parallel()

	if got := NewMessageRing(0).Capacity(); got != 50 {
		t.Fatalf("Capacity() = %d, want 50", got)
	}
}
