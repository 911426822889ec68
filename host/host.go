// Package host implements the owner side of the bridge: the object
// registries and the dispatcher that executes structural operations
// requested by the remote side.
package host

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/tliron/commonlog"

	"github.com/threadware/syncbridge/object"
	"github.com/threadware/syncbridge/shmem"
	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
)

var log = commonlog.GetLogger("syncbridge.host")

// Host serves structural operations against owned objects. One Host owns
// one channel and the registries behind it; message handling is safe
// because the remote side serializes all requests through the channel
// lock.
type Host struct {
	reg *Registry
	tr  transport.Transport
	enc *wire.Encoder

	tokens    map[wire.Token]any
	tokenKeys map[any]wire.Token
}

// New creates a host that answers requests arriving on tr with frames
// written through ch.
func New(ch *shmem.Channel, tr transport.Transport) *Host {
	return &Host{
		reg:       NewRegistry(),
		tr:        tr,
		enc:       wire.NewEncoder(ch),
		tokens:    make(map[wire.Token]any),
		tokenKeys: make(map[any]wire.Token),
	}
}

// Registry returns the host's object registry.
func (h *Host) Registry() *Registry {
	return h.reg
}

// BindToken binds a well-known token index to its owner-side singleton.
// Bindings must be installed before Serve starts.
func (h *Host) BindToken(tok wire.Token, v any) error {
	if !tok.Valid() {
		return fmt.Errorf("host: cannot bind unknown token %d", uint8(tok))
	}
	h.tokens[tok] = v
	if key, ok := identityKey(v); ok {
		h.tokenKeys[key] = tok
	}
	return nil
}

// Serve handles control messages until the transport closes.
func (h *Host) Serve() error {
	for {
		msg, err := h.tr.Recv()
		if errors.Is(err, transport.ErrClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("host: receive control message: %w", err)
		}
		h.HandleMessage(msg)
	}
}

// HandleMessage dispatches one control message. A failed reflect-call
// still produces a terminal failure frame so the remote side never
// stalls on its wait.
func (h *Host) HandleMessage(msg *transport.Message) {
	switch msg.Type {
	case transport.TypeSharedMemory:
		if err := h.enc.Continue(); err != nil {
			log.Warningf("continuation requested with none pending")
		}

	case transport.TypeReflect:
		if err := h.handleReflect(msg); err != nil {
			log.Errorf("dispatch %s on %s: %s", msg.Method, msg.Target, err.Error())
			h.respondError(err)
		}

	default:
		log.Warningf("ignoring control message of unknown type %q", msg.Type)
	}
}

// handleReflect resolves the target, lifts the arguments, executes the
// operation, and encodes the result. Any returned error becomes a
// failure frame in HandleMessage.
func (h *Host) handleReflect(msg *transport.Message) error {
	target, err := h.reg.Lookup(msg.Target)
	if err != nil {
		return err
	}
	args, err := h.liftArguments(msg.Arguments)
	if err != nil {
		return err
	}

	var result wire.Value
	switch msg.Method {
	case transport.MethodGet:
		key, err := keyArgument(args)
		if err != nil {
			return err
		}
		v, found, err := object.Get(target, key)
		if err != nil {
			return err
		}
		if !found {
			result = wire.Undefined()
		} else {
			result = h.lower(v)
		}

	case transport.MethodSet:
		key, value, err := keyValueArguments(args)
		if err != nil {
			return err
		}
		if err := object.Set(target, key, value); err != nil {
			return err
		}
		result = wire.Undefined()

	case transport.MethodHas:
		key, err := keyArgument(args)
		if err != nil {
			return err
		}
		found, err := object.Has(target, key)
		if err != nil {
			return err
		}
		result = wire.Bool(found)

	case transport.MethodDelete:
		key, err := keyArgument(args)
		if err != nil {
			return err
		}
		if err := object.Delete(target, key); err != nil {
			return err
		}
		result = wire.Undefined()

	case transport.MethodDefine:
		key, value, err := keyValueArguments(args)
		if err != nil {
			return err
		}
		if err := object.Define(target, key, value); err != nil {
			return err
		}
		result = wire.Undefined()

	case transport.MethodKeys:
		keys, err := object.Keys(target)
		if err != nil {
			return err
		}
		result = h.lower(keys)

	case transport.MethodApply:
		out, err := object.Apply(target, args)
		if err != nil {
			return err
		}
		result = h.lower(out)

	case transport.MethodConstruct:
		out, err := object.Construct(target, args)
		if err != nil {
			return err
		}
		result = h.lower(out)

	default:
		return fmt.Errorf("host: unknown method %q", msg.Method)
	}

	return h.enc.Encode(result)
}

// respondError emits the failure-tagged terminal frame for a failed
// dispatch.
func (h *Host) respondError(err error) {
	if h.enc.Pending() {
		log.Errorf("cannot emit failure frame during a chunked transfer: %s", err.Error())
		return
	}
	if encErr := h.enc.Encode(wire.Error(err.Error())); encErr != nil {
		log.Errorf("failed to emit failure frame: %s", encErr.Error())
	}
}

// ---------------------------------------------------------------------------
// Argument lifting: wire values in, owner-side values out
// ---------------------------------------------------------------------------

func (h *Host) liftArguments(args []transport.Argument) ([]any, error) {
	out := make([]any, 0, len(args))
	for i, arg := range args {
		v, err := h.liftArgument(arg)
		if err != nil {
			return nil, fmt.Errorf("host: argument %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Host) liftArgument(arg transport.Argument) (any, error) {
	if arg.IsList() {
		elems := make([]any, 0, len(arg.Elements()))
		for _, e := range arg.Elements() {
			v, err := h.liftArgument(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return elems, nil
	}

	v := arg.Value()
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
		bound, ok := h.tokens[v.Token()]
		if !ok {
			return nil, fmt.Errorf("token %s is not bound", v.Token())
		}
		return bound, nil
	case wire.KindString:
		return v.Str(), nil
	case wire.KindBigInt:
		return nil, wire.ErrBigIntUnsupported
	case wire.KindError:
		return nil, fmt.Errorf("error value %q cannot be an argument", v.Message())
	case wire.KindObjectRef:
		return h.reg.Lookup(v.ObjectID())
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind())
}

func keyArgument(args []any) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("host: property operation needs a key argument")
	}
	key, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("host: property key must be a string, got %T", args[0])
	}
	return key, nil
}

func keyValueArguments(args []any) (string, any, error) {
	key, err := keyArgument(args)
	if err != nil {
		return "", nil, err
	}
	if len(args) < 2 {
		return "", nil, fmt.Errorf("host: write operation needs a value argument")
	}
	return key, args[1], nil
}

// ---------------------------------------------------------------------------
// Result lowering: owner-side values in, wire values out
// ---------------------------------------------------------------------------

// lower classifies an operation result for transfer: inline primitives
// stay inline, bound token singletons become token references, and
// everything else registers as a temporary reference.
func (h *Host) lower(v any) wire.Value {
	switch x := v.(type) {
	case nil:
		return wire.Null()
	case wire.Value:
		return x
	case bool:
		return wire.Bool(x)
	case string:
		return wire.String(x)
	case time.Time:
		return wire.Date(x)
	case *big.Int:
		return wire.BigInt(x.String())
	case big.Int:
		return wire.BigInt(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return wire.Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return wire.Number(rv.Float())
	}

	if key, ok := identityKey(v); ok {
		if tok, bound := h.tokenKeys[key]; bound {
			return wire.TokenValue(tok)
		}
	}
	return wire.ObjectRef(h.reg.RegisterTemp(v))
}
