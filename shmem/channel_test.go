package shmem

import (
	"testing"
	"time"
)

func TestNew_RejectsTinyCapacity(t *testing.T) {
	if _, err := New(MinCapacity - 1); err == nil {
		t.Fatal("expected error for capacity below minimum")
	}
	ch, err := New(MinCapacity)
	if err != nil {
		t.Fatalf("New(MinCapacity): %v", err)
	}
	if ch.Capacity() != MinCapacity {
		t.Errorf("Capacity: got %d, want %d", ch.Capacity(), MinCapacity)
	}
}

func TestPublishAwait_CrossGoroutine(t *testing.T) {
	ch, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	go func() {
		copy(ch.Buffer(), []byte("hello"))
		ch.Publish(5)
	}()

	n := ch.Await()
	if n != 5 {
		t.Fatalf("Await: got %d, want 5", n)
	}
	if got := string(ch.Buffer()[:n]); got != "hello" {
		t.Errorf("buffer: got %q, want %q", got, "hello")
	}
}

func TestPublish_PanicsOnDoublePublish(t *testing.T) {
	ch, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch.Publish(1)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on second publish without consumer")
		}
	}()
	ch.Publish(2)
}

func TestLock_SerializesHolders(t *testing.T) {
	ch, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch.Lock()
	entered := make(chan struct{})
	go func() {
		ch.Lock()
		close(entered)
		ch.Unlock()
	}()

	select {
	case <-entered:
		t.Fatal("second holder entered while lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	ch.Unlock()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}
