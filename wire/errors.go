package wire

import "errors"

var (
	// ErrBigIntUnsupported reports an attempt to transfer an
	// arbitrary-precision integer. The wire tag is reserved but no payload
	// encoding is defined; failing loudly beats corrupting data.
	ErrBigIntUnsupported = errors.New("wire: bigint payload encoding not implemented")

	// ErrContinuationPending reports an encode attempted while a previous
	// chunked transfer is still being drained. The single-outstanding-request
	// discipline is supposed to make this impossible.
	ErrContinuationPending = errors.New("wire: encode while a continuation is pending")

	// ErrNoContinuation reports a continuation pull with no chunked
	// transfer in progress.
	ErrNoContinuation = errors.New("wire: no continuation pending")
)
