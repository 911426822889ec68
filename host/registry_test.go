package host

import (
	"errors"
	"testing"

	"github.com/threadware/syncbridge/wire"
)

func TestRegisterRoot_IdentityReuse(t *testing.T) {
	r := NewRegistry()
	m := map[string]any{"x": 1}

	id1 := r.RegisterRoot(m)
	id2 := r.RegisterRoot(m)
	if id1 != id2 {
		t.Errorf("same object got two ids: %s, %s", id1, id2)
	}
	if r.RootCount() != 1 {
		t.Errorf("RootCount: got %d, want 1", r.RootCount())
	}

	other := map[string]any{"x": 1}
	id3 := r.RegisterRoot(other)
	if id3 == id1 {
		t.Error("distinct objects share an id")
	}
}

func TestRegisterRoot_CallableSuffix(t *testing.T) {
	r := NewRegistry()
	fid := r.RegisterRoot(func() {})
	if !fid.Callable() {
		t.Errorf("func id %s should be callable", fid)
	}
	mid := r.RegisterRoot(map[string]any{})
	if mid.Callable() {
		t.Errorf("map id %s should not be callable", mid)
	}
}

func TestRegisterTemp_ClearedInBulk(t *testing.T) {
	r := NewRegistry()
	v := map[string]any{"temp": true}
	id := r.RegisterTemp(v)

	got, err := r.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup before clear: %v", err)
	}
	if got == nil {
		t.Fatal("Lookup returned nil value")
	}

	r.ClearTemporaries()
	if _, err := r.Lookup(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after clear: got %v, want ErrNotFound", err)
	}
	if r.TempCount() != 0 {
		t.Errorf("TempCount after clear: got %d, want 0", r.TempCount())
	}
}

func TestRegisterTemp_AlwaysMintsFresh(t *testing.T) {
	r := NewRegistry()
	v := map[string]any{}
	if r.RegisterTemp(v) == r.RegisterTemp(v) {
		t.Error("temporary registrations should mint fresh ids")
	}
}

func TestLookup_RootShadowsNothing(t *testing.T) {
	r := NewRegistry()
	root := map[string]any{"kind": "root"}
	temp := map[string]any{"kind": "temp"}
	rid := r.RegisterRoot(root)
	tid := r.RegisterTemp(temp)

	for _, tc := range []struct {
		id   string
		want map[string]any
	}{
		{string(rid), root},
		{string(tid), temp},
	} {
		got, err := r.Lookup(wire.ObjectID(tc.id))
		if err != nil {
			t.Fatalf("Lookup(%s): %v", tc.id, err)
		}
		if got.(map[string]any)["kind"] != tc.want["kind"] {
			t.Errorf("Lookup(%s): got %v", tc.id, got)
		}
	}
}
