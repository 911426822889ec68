// Package transport carries the out-of-band control messages of the
// bridge: reflect-call requests from the remote side and
// request-more-data pulls for chunked transfers.
//
// Messages are JSON-representable and framed in canonical CBOR on the
// wire. The in-memory Pair crosses every frame through the codec so both
// ends always exercise the real wire representation.
package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/threadware/syncbridge/wire"
)

// Message types.
const (
	// TypeReflect requests one structural operation against a target object.
	TypeReflect = "proxy-reflect"
	// TypeSharedMemory pulls the next chunk of a pending oversized transfer.
	TypeSharedMemory = "proxy-shared-memory"
)

// Method names a structural operation carried by a proxy-reflect message.
type Method string

const (
	MethodGet       Method = "read-property"
	MethodSet       Method = "write-property"
	MethodHas       Method = "has-property"
	MethodDelete    Method = "delete-property"
	MethodDefine    Method = "define-property"
	MethodKeys      Method = "enumerate-keys"
	MethodApply     Method = "apply"
	MethodConstruct Method = "construct"
)

// Message is one control frame.
type Message struct {
	Type      string        `json:"type" cbor:"type"`
	Method    Method        `json:"method,omitempty" cbor:"method,omitempty"`
	Target    wire.ObjectID `json:"target,omitempty" cbor:"target,omitempty"`
	Arguments []Argument    `json:"arguments,omitempty" cbor:"arguments,omitempty"`
}

// cborEncMode uses canonical encoding for deterministic frames, matching
// the value envelope encoding in package wire.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("transport: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a message to CBOR bytes.
func Marshal(m *Message) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// Unmarshal deserializes a message from CBOR bytes.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("transport: unmarshal message: %w", err)
	}
	return &m, nil
}

// ErrClosed reports an operation on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Transport moves control frames between the two sides of one bridge.
type Transport interface {
	// Send delivers one message to the peer.
	Send(*Message) error
	// Recv blocks until a message arrives or the transport closes.
	Recv() (*Message, error)
	// Close tears down both endpoints of the transport.
	Close() error
}

// ---------------------------------------------------------------------------
// In-memory pair
// ---------------------------------------------------------------------------

// Pair returns two connected in-memory endpoints. Frames are marshaled to
// CBOR on Send and unmarshaled on Recv.
func Pair() (Transport, Transport) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	done := make(chan struct{})
	var once sync.Once
	a := &memEndpoint{out: ab, in: ba, done: done, once: &once}
	b := &memEndpoint{out: ba, in: ab, done: done, once: &once}
	return a, b
}

type memEndpoint struct {
	out  chan []byte
	in   chan []byte
	done chan struct{}
	once *sync.Once
}

func (e *memEndpoint) Send(m *Message) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.out <- data:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

func (e *memEndpoint) Recv() (*Message, error) {
	select {
	case data := <-e.in:
		return Unmarshal(data)
	case <-e.done:
		return nil, ErrClosed
	}
}

func (e *memEndpoint) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}
