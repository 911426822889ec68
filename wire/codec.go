package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/threadware/syncbridge/shmem"
)

// ---------------------------------------------------------------------------
// Encoder: owner-side value serialization into the shared buffer
// ---------------------------------------------------------------------------

// Encoder writes values into a shared channel's buffer and publishes their
// sizes. It holds the single continuation slot for chunked transfers.
type Encoder struct {
	ch   *shmem.Channel
	cont func()
}

// NewEncoder creates an encoder bound to ch.
func NewEncoder(ch *shmem.Channel) *Encoder {
	return &Encoder{ch: ch}
}

// Encode writes tag and payload for v into the buffer and publishes the
// frame's byte length. Variable-length payloads larger than the buffer
// publish their true total and arm a continuation that the peer drains
// with request-more-data pulls.
func (e *Encoder) Encode(v Value) error {
	if e.cont != nil {
		return ErrContinuationPending
	}
	buf := e.ch.Buffer()
	switch v.kind {
	case KindUndefined:
		buf[0] = tagUndefined
		e.ch.Publish(1)
	case KindNull:
		buf[0] = tagNull
		e.ch.Publish(1)
	case KindBool:
		if v.b {
			buf[0] = tagTrue
		} else {
			buf[0] = tagFalse
		}
		e.ch.Publish(1)
	case KindNumber:
		buf[0] = tagNumber
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.num))
		e.ch.Publish(9)
	case KindDate:
		buf[0] = tagDate
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.num))
		e.ch.Publish(9)
	case KindToken:
		if !v.tok.Valid() {
			return fmt.Errorf("wire: cannot encode unknown token %d", uint8(v.tok))
		}
		buf[0] = tagToken
		buf[1] = byte(v.tok)
		e.ch.Publish(2)
	case KindString:
		e.encodeBytes(tagString, []byte(v.str))
	case KindBigInt:
		return ErrBigIntUnsupported
	case KindError:
		e.encodeBytes(tagError, []byte(v.str))
	case KindObjectRef:
		e.encodeBytes(tagObjectRef, []byte(v.str))
	default:
		return fmt.Errorf("wire: cannot encode value of kind %d", v.kind)
	}
	return nil
}

// encodeBytes writes a tag plus a variable-length payload. When the frame
// exceeds the buffer it writes the first capacity-1 payload bytes,
// publishes the true total, and arms the continuation with the rest.
func (e *Encoder) encodeBytes(tag byte, payload []byte) {
	buf := e.ch.Buffer()
	capacity := e.ch.Capacity()
	total := 1 + len(payload)

	buf[0] = tag
	if total <= capacity {
		copy(buf[1:], payload)
		e.ch.Publish(total)
		return
	}

	copy(buf[1:], payload[:capacity-1])
	rest := payload[capacity-1:]
	e.cont = func() {
		n := len(rest)
		if n > capacity {
			n = capacity
		}
		copy(buf[:n], rest[:n])
		rest = rest[n:]
		if len(rest) == 0 {
			e.cont = nil
		}
		e.ch.Publish(n)
	}
	e.ch.Publish(total)
}

// Pending reports whether a chunked transfer is waiting to be drained.
func (e *Encoder) Pending() bool { return e.cont != nil }

// Continue writes the next chunk of a pending transfer and publishes its
// size. It fails with ErrNoContinuation when nothing is pending.
func (e *Encoder) Continue() error {
	if e.cont == nil {
		return ErrNoContinuation
	}
	e.cont()
	return nil
}

// ---------------------------------------------------------------------------
// Decoder: remote-side frame consumption
// ---------------------------------------------------------------------------

// Decoder reads published frames from a shared channel. For frames larger
// than the buffer it pulls continuation chunks through the requestMore
// callback until the accumulated byte count reaches the declared total.
type Decoder struct {
	ch          *shmem.Channel
	requestMore func() error
}

// NewDecoder creates a decoder bound to ch. requestMore sends one
// request-more-data control message to the owner side; it is only invoked
// mid-frame, while the caller already holds the channel lock.
func NewDecoder(ch *shmem.Channel, requestMore func() error) *Decoder {
	return &Decoder{ch: ch, requestMore: requestMore}
}

// Decode blocks until a frame is published and returns its value.
func (d *Decoder) Decode() (Value, error) {
	total := d.ch.Await()
	buf := d.ch.Buffer()
	capacity := d.ch.Capacity()

	if total <= 0 {
		return Value{}, fmt.Errorf("wire: invalid published size %d", total)
	}

	var data []byte
	if total <= capacity {
		data = make([]byte, total)
		copy(data, buf[:total])
	} else {
		data = make([]byte, 0, total)
		data = append(data, buf[:capacity]...)
		for len(data) < total {
			if err := d.requestMore(); err != nil {
				return Value{}, fmt.Errorf("wire: request more data: %w", err)
			}
			n := d.ch.Await()
			remaining := total - len(data)
			if n <= 0 || n > remaining {
				return Value{}, fmt.Errorf("wire: continuation chunk size %d with %d bytes remaining", n, remaining)
			}
			data = append(data, buf[:n]...)
		}
	}
	return decodeFrame(data)
}

// decodeFrame decodes one reassembled frame. The tag switch is exhaustive
// over the wire format; an unknown tag is a protocol error, not a value.
func decodeFrame(data []byte) (Value, error) {
	switch tag := data[0]; tag {
	case tagUndefined:
		return Undefined(), nil
	case tagNull:
		return Null(), nil
	case tagFalse:
		return Bool(false), nil
	case tagTrue:
		return Bool(true), nil
	case tagNumber:
		if len(data) < 9 {
			return Value{}, fmt.Errorf("wire: short number frame (%d bytes)", len(data))
		}
		return Number(math.Float64frombits(binary.LittleEndian.Uint64(data[1:]))), nil
	case tagDate:
		if len(data) < 9 {
			return Value{}, fmt.Errorf("wire: short date frame (%d bytes)", len(data))
		}
		ms := math.Float64frombits(binary.LittleEndian.Uint64(data[1:]))
		return Value{kind: KindDate, num: ms}, nil
	case tagToken:
		if len(data) < 2 {
			return Value{}, fmt.Errorf("wire: short token frame (%d bytes)", len(data))
		}
		tok := Token(data[1])
		if !tok.Valid() {
			return Value{}, fmt.Errorf("wire: unknown token index %d", data[1])
		}
		return TokenValue(tok), nil
	case tagString:
		return String(string(data[1:])), nil
	case tagBigInt:
		return Value{}, ErrBigIntUnsupported
	case tagError:
		return Error(string(data[1:])), nil
	case tagObjectRef:
		return ObjectRef(ObjectID(data[1:])), nil
	default:
		return Value{}, fmt.Errorf("wire: unknown type tag %d", tag)
	}
}
