package shmem

import (
	"fmt"
	"sync"
)

// MinCapacity is the smallest usable buffer: a type tag byte plus an
// 8-byte inline payload. Every fixed-size wire variant fits in this.
const MinCapacity = 9

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = 1024

// Channel is a fixed-capacity shared byte buffer with rendezvous semantics.
//
// The lock grants one caller exclusive use of the whole channel. Publish
// announces that n bytes of the buffer are ready; Await blocks until a
// publication occurs and consumes it exactly once.
type Channel struct {
	mu   sync.Mutex
	buf  []byte
	size chan int
}

// New creates a channel with the given buffer capacity.
func New(capacity int) (*Channel, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("shmem: capacity %d below minimum %d", capacity, MinCapacity)
	}
	return &Channel{
		buf:  make([]byte, capacity),
		size: make(chan int, 1),
	}, nil
}

// Capacity returns the buffer capacity in bytes.
func (c *Channel) Capacity() int {
	return len(c.buf)
}

// Buffer returns the shared byte buffer. Callers must hold the channel
// lock (remote side) or be responding to a request they received while
// the requester blocks (owner side).
func (c *Channel) Buffer() []byte {
	return c.buf
}

// Lock grants the caller exclusive use of the channel. All operations of
// one round trip, including multi-chunk transfers, happen under one lock
// acquisition.
func (c *Channel) Lock() {
	c.mu.Lock()
}

// Unlock releases the channel for the next round trip.
func (c *Channel) Unlock() {
	c.mu.Unlock()
}

// Publish announces that n bytes of the buffer are ready to be consumed.
// For chunked transfers the first publication carries the true total byte
// length of the frame, which may exceed the buffer capacity; subsequent
// publications carry the size of each chunk.
func (c *Channel) Publish(n int) {
	select {
	case c.size <- n:
	default:
		panic("shmem: size published before previous publication was consumed")
	}
}

// Await blocks until a size is published and consumes the publication.
func (c *Channel) Await() int {
	return <-c.size
}
