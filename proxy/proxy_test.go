package proxy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/threadware/syncbridge/host"
	"github.com/threadware/syncbridge/shmem"
	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
)

// newBridge wires a complete in-process bridge: a serving host on the
// owner side and a Bridge on the remote side.
func newBridge(t *testing.T, capacity int) (*host.Host, *Bridge, func()) {
	t.Helper()
	ch, err := shmem.New(capacity)
	if err != nil {
		t.Fatalf("shmem.New: %v", err)
	}
	remote, owner := transport.Pair()
	h := host.New(ch, owner)
	go h.Serve()
	return h, NewBridge(ch, remote), func() { remote.Close() }
}

func TestProxy_MirrorsHostObject(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	obj := map[string]any{"x": 1.0, "name": "ada"}
	p := b.Object(h.Registry().RegisterRoot(obj))

	if err := p.Set("x", 42.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if obj["x"] != 42.0 {
		t.Errorf("owner-side value after proxy write: got %v, want 42", obj["x"])
	}

	v, err := p.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != 42.0 {
		t.Errorf("proxy read: got %v, want 42", v)
	}

	ok, err := p.Has("name")
	if err != nil || !ok {
		t.Fatalf("Has(name): %v, ok=%t", err, ok)
	}

	if err := p.Delete("name"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, present := obj["name"]; present {
		t.Error("owner-side key still present after proxy delete")
	}

	keys, err := p.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"x"}) {
		t.Errorf("Keys: got %v, want [x]", keys)
	}
}

func TestProxy_AbsentPropertyReadsNil(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	p := b.Object(h.Registry().RegisterRoot(map[string]any{}))
	v, err := p.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want nil", v)
	}
}

func TestProxy_NestedProxySynthesis(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	inner := map[string]any{"deep": "value"}
	outer := map[string]any{"inner": inner}
	p := b.Object(h.Registry().RegisterRoot(outer))

	v, err := p.Get("inner")
	if err != nil {
		t.Fatalf("Get(inner): %v", err)
	}
	ip, ok := v.(*Proxy)
	if !ok {
		t.Fatalf("got %T, want *Proxy", v)
	}

	d, err := ip.Get("deep")
	if err != nil {
		t.Fatalf("nested Get: %v", err)
	}
	if d != "value" {
		t.Errorf("nested read: got %v", d)
	}

	// Mutations through the nested proxy land on the original object.
	if err := ip.Set("deep", "changed"); err != nil {
		t.Fatalf("nested Set: %v", err)
	}
	if inner["deep"] != "changed" {
		t.Errorf("owner-side nested value: got %v", inner["deep"])
	}
}

func TestProxy_ReceiverSelectsApplyTarget(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	one := func() string { return "one" }
	two := func() string { return "two" }
	p1 := b.Object(h.Registry().RegisterRoot(one))
	p2 := b.Object(h.Registry().RegisterRoot(two))

	// The proxy itself (or nil) as receiver targets its own object.
	for _, receiver := range []any{p1, nil} {
		v, err := p1.Invoke(receiver)
		if err != nil {
			t.Fatalf("Invoke(%v): %v", receiver, err)
		}
		if v != "one" {
			t.Errorf("Invoke(%v): got %v, want one", receiver, v)
		}
	}

	// A foreign proxy as receiver redirects the apply to its object.
	v, err := p1.Invoke(p2)
	if err != nil {
		t.Fatalf("Invoke(p2): %v", err)
	}
	if v != "two" {
		t.Errorf("Invoke(p2): got %v, want two", v)
	}
}

func TestProxy_CallMethodThroughProxy(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	calc := map[string]any{
		"add": func(a, b float64) float64 { return a + b },
	}
	p := b.Object(h.Registry().RegisterRoot(calc))

	v, err := p.Call("add", 2.0, 3.0)
	if err != nil {
		t.Fatalf("Call(add): %v", err)
	}
	if v != 5.0 {
		t.Errorf("got %v, want 5", v)
	}

	if _, err := p.Call("missing"); err == nil {
		t.Error("calling an absent property should fail")
	}
}

func TestProxy_ConstructThroughProxy(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	factory := func(name string) map[string]any { return map[string]any{"name": name} }
	p := b.Object(h.Registry().RegisterRoot(factory))

	v, err := p.New("widget")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	created, ok := v.(*Proxy)
	if !ok {
		t.Fatalf("got %T, want *Proxy", v)
	}
	name, err := created.Get("name")
	if err != nil || name != "widget" {
		t.Fatalf("created.Get(name): %v, %v", name, err)
	}
}

func TestProxy_RemoteErrorSurfaces(t *testing.T) {
	_, b, stop := newBridge(t, 64)
	defer stop()

	ghost := b.Object(wire.NewObjectID("no-such", false))
	_, err := ghost.Get("x")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("got %v, want RemoteError", err)
	}
	if !strings.Contains(remote.Message, "not found") {
		t.Errorf("message: %q", remote.Message)
	}
}

func TestProxy_ChunkedStringTransfer(t *testing.T) {
	h, b, stop := newBridge(t, 32)
	defer stop()

	long := strings.Repeat("sévère-", 400)
	p := b.Object(h.Registry().RegisterRoot(map[string]any{"text": long}))

	v, err := p.Get("text")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != long {
		t.Errorf("chunked payload mismatch: got %d bytes, want %d", len(v.(string)), len(long))
	}
}

func TestProxy_DateTransfer(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	when := time.UnixMilli(1700000000000).UTC()
	p := b.Object(h.Registry().RegisterRoot(map[string]any{"at": when}))

	v, err := p.Get("at")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, ok := v.(time.Time)
	if !ok || !got.Equal(when) {
		t.Errorf("got %v, want %v", v, when)
	}
}

func TestProxy_ProxyArgumentResolvesOnOwnerSide(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	settings := map[string]any{"mode": "fast"}
	readMode := func(m map[string]any) string { return m["mode"].(string) }

	sp := b.Object(h.Registry().RegisterRoot(settings))
	fp := b.Object(h.Registry().RegisterRoot(readMode))

	v, err := fp.Invoke(fp, sp)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if v != "fast" {
		t.Errorf("got %v, want fast", v)
	}
}

func TestProxy_SequentialOperationsNeverInterleave(t *testing.T) {
	h, b, stop := newBridge(t, 64)
	defer stop()

	obj := map[string]any{}
	p := b.Object(h.Registry().RegisterRoot(obj))

	// The channel lock serializes round trips, so concurrent callers
	// must each observe their own write.
	const workers = 4
	const rounds = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				if err := p.Set(key, float64(i)); err != nil {
					errs <- err
					return
				}
				v, err := p.Get(key)
				if err != nil {
					errs <- err
					return
				}
				if v != float64(i) {
					errs <- fmt.Errorf("read back %v for %s, want %d", v, key, i)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if len(obj) != workers*rounds {
		t.Errorf("owner-side key count: got %d, want %d", len(obj), workers*rounds)
	}
}
