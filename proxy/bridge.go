package proxy

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/threadware/syncbridge/shmem"
	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
)

var log = commonlog.GetLogger("syncbridge.proxy")

// RemoteError is a failure that happened on the owner side of the bridge
// and arrived as a failure-tagged terminal frame.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "proxy: remote error: " + e.Message
}

// Bridge is the client half of one channel: it owns the lock discipline,
// the control transport, and the response decoder.
type Bridge struct {
	ch  *shmem.Channel
	tr  transport.Transport
	dec *wire.Decoder
}

// NewBridge creates the client side of a channel.
func NewBridge(ch *shmem.Channel, tr transport.Transport) *Bridge {
	b := &Bridge{ch: ch, tr: tr}
	b.dec = wire.NewDecoder(ch, func() error {
		return tr.Send(&transport.Message{Type: transport.TypeSharedMemory})
	})
	return b
}

// Object returns a stand-in for the owner-side object with the given id.
func (b *Bridge) Object(id wire.ObjectID) *Proxy {
	return &Proxy{bridge: b, id: id}
}

// roundTrip performs one complete blocking exchange: request out,
// response frame in. The channel lock is held end to end, covering any
// continuation chunks of an oversized response.
func (b *Bridge) roundTrip(method transport.Method, target wire.ObjectID, args []transport.Argument) (any, error) {
	b.ch.Lock()
	defer b.ch.Unlock()

	err := b.tr.Send(&transport.Message{
		Type:      transport.TypeReflect,
		Method:    method,
		Target:    target,
		Arguments: args,
	})
	if err != nil {
		log.Errorf("send %s to %s: %s", method, target, err.Error())
		return nil, fmt.Errorf("proxy: send reflect-call: %w", err)
	}

	v, err := b.dec.Decode()
	if err != nil {
		log.Errorf("decode response of %s on %s: %s", method, target, err.Error())
		return nil, fmt.Errorf("proxy: decode response: %w", err)
	}
	return b.materialize(v)
}

// materialize turns a decoded frame into a caller-facing value. Object
// references become fresh proxies; failure frames become errors.
func (b *Bridge) materialize(v wire.Value) (any, error) {
	switch v.Kind() {
	case wire.KindUndefined, wire.KindNull:
		return nil, nil
	case wire.KindBool:
		return v.Bool(), nil
	case wire.KindNumber:
		return v.Number(), nil
	case wire.KindDate:
		return v.Time(), nil
	case wire.KindToken:
		return v.Token(), nil
	case wire.KindString:
		return v.Str(), nil
	case wire.KindBigInt:
		return nil, wire.ErrBigIntUnsupported
	case wire.KindError:
		return nil, &RemoteError{Message: v.Message()}
	case wire.KindObjectRef:
		return b.Object(v.ObjectID()), nil
	}
	return nil, fmt.Errorf("proxy: cannot materialize value of kind %d", v.Kind())
}
