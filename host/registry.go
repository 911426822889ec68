package host

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/threadware/syncbridge/object"
	"github.com/threadware/syncbridge/wire"
)

// ErrNotFound reports a lookup of an id that is in neither the root nor
// the temporary registry. It is a distinct failure, never conflated with
// a legitimately absent property value.
var ErrNotFound = errors.New("host: object not found")

// ---------------------------------------------------------------------------
// Registry: root and temporary object tables
// ---------------------------------------------------------------------------

// Registry owns the objects reachable from the remote side.
//
// Root references are bidirectional and live until the registry is torn
// down; registering the same value twice returns the same id (identity,
// not equality). Temporary references hold operation results; the whole
// temporary table is dropped at once by ClearTemporaries.
type Registry struct {
	mu      sync.Mutex
	roots   map[wire.ObjectID]any
	rootIDs map[any]wire.ObjectID
	temps   map[wire.ObjectID]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		roots:   make(map[wire.ObjectID]any),
		rootIDs: make(map[any]wire.ObjectID),
		temps:   make(map[wire.ObjectID]any),
	}
}

// RegisterRoot registers a long-lived object and returns its id. The same
// object (by identity) keeps its first id.
func (r *Registry) RegisterRoot(v any) wire.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, keyed := identityKey(v)
	if keyed {
		if id, ok := r.rootIDs[key]; ok {
			return id
		}
	}
	id := mintID(v)
	r.roots[id] = v
	if keyed {
		r.rootIDs[key] = id
	}
	return id
}

// RegisterTemp registers an operation result and returns its id. The
// mapping is one-directional; registering the same value twice mints two
// ids.
func (r *Registry) RegisterTemp(v any) wire.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := mintID(v)
	r.temps[id] = v
	return id
}

// ClearTemporaries drops the whole temporary table. Callers must
// guarantee no in-flight reference predates the clear: any id the remote
// side still holds into the table becomes unresolvable.
func (r *Registry) ClearTemporaries() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temps = make(map[wire.ObjectID]any)
}

// Lookup resolves an id against the root table first, then the
// temporary table. Absence in both is ErrNotFound.
func (r *Registry) Lookup(id wire.ObjectID) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.roots[id]; ok {
		return v, nil
	}
	if v, ok := r.temps[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// RootCount returns the number of root references.
func (r *Registry) RootCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roots)
}

// TempCount returns the number of temporary references.
func (r *Registry) TempCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.temps)
}

// ---------------------------------------------------------------------------
// Identity and id minting
// ---------------------------------------------------------------------------

// refKey keys reference-kinded values by their pointer. The type is kept
// alongside because unrelated types can share an address.
type refKey struct {
	typ reflect.Type
	ptr uintptr
}

// identityKey derives a map key that stands for the value's identity.
// Reference kinds key by pointer; comparable values key by themselves;
// everything else reports no usable identity.
func identityKey(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return refKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	if rv.Comparable() {
		return v, true
	}
	return nil, false
}

// mintID mints a random id carrying the value's callability suffix.
func mintID(v any) wire.ObjectID {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("host: cannot mint object id: %v", err))
	}
	return wire.NewObjectID(hex.EncodeToString(b[:]), object.Callable(v))
}
