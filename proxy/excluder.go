package proxy

import (
	"github.com/threadware/syncbridge/object"
)

// localObject adapts a plain Go value to the Object interface using the
// structural engine directly, without any round trip.
type localObject struct {
	target any
}

var _ Object = localObject{}

func (l localObject) Get(key string) (any, error) {
	v, _, err := object.Get(l.target, key)
	return v, err
}

func (l localObject) Set(key string, value any) error {
	return object.Set(l.target, key, value)
}

func (l localObject) Has(key string) (bool, error) {
	return object.Has(l.target, key)
}

func (l localObject) Delete(key string) error {
	return object.Delete(l.target, key)
}

func (l localObject) Define(key string, value any) error {
	return object.Define(l.target, key, value)
}

func (l localObject) Keys() ([]string, error) {
	return object.Keys(l.target)
}

func (l localObject) Invoke(_ any, args ...any) (any, error) {
	return object.Apply(l.target, args)
}

func (l localObject) New(args ...any) (any, error) {
	return object.Construct(l.target, args)
}

// Local wraps a plain Go value as an Object served without round trips.
func Local(v any) Object {
	if o, ok := v.(Object); ok {
		return o
	}
	return &localObject{target: v}
}

// Excluder is a local stand-in that serves a configured key set from an
// underlying object and every other key from the primary one. It lets a
// small allow-list of members bypass the cross-thread round trip the
// primary would otherwise take.
type Excluder struct {
	primary    Object
	underlying Object
	excluded   map[string]struct{}
}

var _ Object = (*Excluder)(nil)

// NewExcluder builds an excluder over primary and underlying. Both may
// be plain Go values or Objects (including remote proxies).
func NewExcluder(primary, underlying any, excludedKeys ...string) *Excluder {
	excluded := make(map[string]struct{}, len(excludedKeys))
	for _, k := range excludedKeys {
		excluded[k] = struct{}{}
	}
	return &Excluder{
		primary:    Local(primary),
		underlying: Local(underlying),
		excluded:   excluded,
	}
}

// resolveFor picks the object serving the given key.
func (e *Excluder) resolveFor(key string) Object {
	if _, ok := e.excluded[key]; ok {
		return e.underlying
	}
	return e.primary
}

func (e *Excluder) Get(key string) (any, error) {
	return e.resolveFor(key).Get(key)
}

func (e *Excluder) Set(key string, value any) error {
	return e.resolveFor(key).Set(key, value)
}

func (e *Excluder) Has(key string) (bool, error) {
	return e.resolveFor(key).Has(key)
}

func (e *Excluder) Delete(key string) error {
	return e.resolveFor(key).Delete(key)
}

func (e *Excluder) Define(key string, value any) error {
	return e.resolveFor(key).Define(key, value)
}

// Keys enumerates the primary object's keys. The exclusion set redirects
// member access, not enumeration.
func (e *Excluder) Keys() ([]string, error) {
	return e.primary.Keys()
}

func (e *Excluder) Invoke(receiver any, args ...any) (any, error) {
	return e.primary.Invoke(receiver, args...)
}

func (e *Excluder) New(args ...any) (any, error) {
	return e.primary.New(args...)
}
