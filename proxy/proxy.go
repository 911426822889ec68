package proxy

import (
	"fmt"
	"strconv"

	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
)

// Object is the structural capability interface: one method per
// operation a stand-in can intercept. Proxy implements it with remote
// round trips; Excluder and localObject implement it locally.
type Object interface {
	// Get reads a property. Absent properties read as nil, not as an
	// error.
	Get(key string) (any, error)
	// Set writes a property.
	Set(key string, value any) error
	// Has reports whether a property exists.
	Has(key string) (bool, error)
	// Delete removes a property.
	Delete(key string) error
	// Define installs a property.
	Define(key string, value any) error
	// Keys enumerates the object's own keys.
	Keys() ([]string, error)
	// Invoke calls the object. The receiver decides whose object the
	// owner executes the call against; pass nil or the callee itself for
	// a plain call.
	Invoke(receiver any, args ...any) (any, error)
	// New invokes the object as a constructor.
	New(args ...any) (any, error)
}

// Proxy is a stand-in for an object owned by the other side of the
// bridge. Every structural operation is one blocking round trip.
type Proxy struct {
	bridge *Bridge
	id     wire.ObjectID
}

var _ Object = (*Proxy)(nil)

// ID returns the proxy's cross-boundary object id.
func (p *Proxy) ID() wire.ObjectID { return p.id }

// Callable reports whether the remote object can be invoked. It is
// answered from the id suffix, without a round trip.
func (p *Proxy) Callable() bool { return p.id.Callable() }

func (p *Proxy) String() string { return fmt.Sprintf("proxy(%s)", p.id) }

// Get reads a property of the remote object.
func (p *Proxy) Get(key string) (any, error) {
	return p.bridge.roundTrip(transport.MethodGet, p.id, keyArgs(key))
}

// Set writes a property of the remote object.
func (p *Proxy) Set(key string, value any) error {
	args, err := keyValueArgs(key, value)
	if err != nil {
		return err
	}
	_, err = p.bridge.roundTrip(transport.MethodSet, p.id, args)
	return err
}

// Has reports whether the remote object has a property.
func (p *Proxy) Has(key string) (bool, error) {
	v, err := p.bridge.roundTrip(transport.MethodHas, p.id, keyArgs(key))
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("proxy: has-property answered %T, want bool", v)
	}
	return b, nil
}

// Delete removes a property of the remote object.
func (p *Proxy) Delete(key string) error {
	_, err := p.bridge.roundTrip(transport.MethodDelete, p.id, keyArgs(key))
	return err
}

// Define installs a property on the remote object.
func (p *Proxy) Define(key string, value any) error {
	args, err := keyValueArgs(key, value)
	if err != nil {
		return err
	}
	_, err = p.bridge.roundTrip(transport.MethodDefine, p.id, args)
	return err
}

// Keys enumerates the remote object's own keys. The owner answers with a
// reference to its key list; the elements are pulled through that nested
// proxy.
func (p *Proxy) Keys() ([]string, error) {
	v, err := p.bridge.roundTrip(transport.MethodKeys, p.id, nil)
	if err != nil {
		return nil, err
	}
	list, ok := v.(*Proxy)
	if !ok {
		return nil, fmt.Errorf("proxy: enumerate-keys answered %T, want object reference", v)
	}

	lv, err := list.Get("length")
	if err != nil {
		return nil, err
	}
	length, ok := lv.(float64)
	if !ok {
		return nil, fmt.Errorf("proxy: key list length is %T, want number", lv)
	}

	keys := make([]string, 0, int(length))
	for i := 0; i < int(length); i++ {
		kv, err := list.Get(strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		key, ok := kv.(string)
		if !ok {
			return nil, fmt.Errorf("proxy: key %d is %T, want string", i, kv)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Invoke calls the remote callable. A foreign proxy receiver redirects
// the apply to that proxy's object; the proxy itself (or nil) targets
// its own.
func (p *Proxy) Invoke(receiver any, args ...any) (any, error) {
	target := p.id
	if q, ok := receiver.(*Proxy); ok && q != p {
		target = q.id
	}
	serialized, err := SerializeArguments(args)
	if err != nil {
		return nil, err
	}
	return p.bridge.roundTrip(transport.MethodApply, target, serialized)
}

// New invokes the remote callable as a constructor.
func (p *Proxy) New(args ...any) (any, error) {
	serialized, err := SerializeArguments(args)
	if err != nil {
		return nil, err
	}
	return p.bridge.roundTrip(transport.MethodConstruct, p.id, serialized)
}

// Call reads a callable property and invokes it in one go, with the
// callee as its own receiver.
func (p *Proxy) Call(name string, args ...any) (any, error) {
	v, err := p.Get(name)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(*Proxy)
	if !ok {
		return nil, fmt.Errorf("proxy: property %q is %T, not callable", name, v)
	}
	if !fn.Callable() {
		return nil, fmt.Errorf("proxy: property %q refers to a non-callable object", name)
	}
	return fn.Invoke(fn, args...)
}

func keyArgs(key string) []transport.Argument {
	return []transport.Argument{transport.Scalar(wire.String(key))}
}

func keyValueArgs(key string, value any) ([]transport.Argument, error) {
	arg, err := serializeArgument(value)
	if err != nil {
		return nil, err
	}
	return []transport.Argument{transport.Scalar(wire.String(key)), arg}, nil
}
