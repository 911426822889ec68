// Package wire defines the serialized value model and the binary codec
// that moves values through the shared channel.
//
// Value is a closed tagged union. Encoding a value writes a one-byte type
// tag followed by the payload into the channel buffer and publishes the
// frame's byte length through the channel's size mailbox. Fixed-size
// variants always fit within the minimum guaranteed buffer capacity
// (tag + 8 bytes); variable-length variants declare their true total via
// the published size, independent of buffer capacity, and spill across
// multiple chunks when they exceed it.
//
// Chunked transfer is single-slot: the encoder retains at most one pending
// continuation, drained by the peer with request-more-data pulls until the
// accumulated byte count reaches the declared total. The channel's
// single-outstanding-request discipline guarantees no new frame is encoded
// while a continuation is pending.
package wire
