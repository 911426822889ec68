// Package shmem implements the shared rendezvous channel that carries
// serialized values between the owner and remote goroutines.
//
// A Channel is a fixed-capacity byte buffer paired with a single-slot size
// mailbox. The remote side takes the channel lock for the whole duration of
// one logical round trip; the owner side writes a frame into the buffer and
// publishes its byte length, which unblocks the remote side's wait.
//
// The size mailbox holds exactly one publication. The protocol built on top
// guarantees a single outstanding request per channel, so a second publish
// before the previous one is consumed indicates a protocol bug and panics.
package shmem
