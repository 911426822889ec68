package transport

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/threadware/syncbridge/wire"
)

func TestMessage_CBORRoundTrip(t *testing.T) {
	m := &Message{
		Type:   TypeReflect,
		Method: MethodApply,
		Target: wire.NewObjectID("feedface", true),
		Arguments: []Argument{
			Scalar(wire.Number(7)),
			List(
				Scalar(wire.String("x")),
				Scalar(wire.ObjectRef(wire.NewObjectID("cafe", false))),
			),
		},
	}

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Type != m.Type || got.Method != m.Method || got.Target != m.Target {
		t.Errorf("header mismatch: got %+v", got)
	}
	if len(got.Arguments) != 2 {
		t.Fatalf("arguments: got %d, want 2", len(got.Arguments))
	}
	if got.Arguments[0].IsList() || !got.Arguments[0].Value().Equal(wire.Number(7)) {
		t.Errorf("argument 0: got %v", got.Arguments[0])
	}
	list := got.Arguments[1]
	if !list.IsList() || len(list.Elements()) != 2 {
		t.Fatalf("argument 1: expected 2-element list, got %v", list)
	}
	if !list.Elements()[0].Value().Equal(wire.String("x")) {
		t.Errorf("list element 0: got %s", list.Elements()[0].Value())
	}
	ref := list.Elements()[1].Value()
	if ref.Kind() != wire.KindObjectRef || ref.ObjectID().Callable() {
		t.Errorf("list element 1: got %s", ref)
	}
}

func TestMessage_SharedMemoryFrame(t *testing.T) {
	data, err := Marshal(&Message{Type: TypeSharedMemory})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != TypeSharedMemory || got.Method != "" || len(got.Arguments) != 0 {
		t.Errorf("got %+v, want bare shared-memory frame", got)
	}
}

func TestArgument_JSONRepresentation(t *testing.T) {
	arg := List(Scalar(wire.Number(1)), Scalar(wire.Null()))
	data, err := json.Marshal(arg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Argument
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	if !got.IsList() || len(got.Elements()) != 2 {
		t.Fatalf("got %v, want 2-element list", got)
	}
	if !got.Elements()[0].Value().Equal(wire.Number(1)) {
		t.Errorf("element 0: got %s", got.Elements()[0].Value())
	}
}

func TestPair_SendRecv(t *testing.T) {
	a, b := Pair()
	defer a.Close()

	go func() {
		a.Send(&Message{Type: TypeReflect, Method: MethodGet, Target: "x!o",
			Arguments: []Argument{Scalar(wire.String("key"))}})
	}()

	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.Method != MethodGet || got.Target != "x!o" {
		t.Errorf("got %+v", got)
	}
}

func TestPair_CloseUnblocksBothEnds(t *testing.T) {
	a, b := Pair()
	errs := make(chan error, 1)
	go func() {
		_, err := b.Recv()
		errs <- err
	}()

	a.Close()
	if err := <-errs; !errors.Is(err, ErrClosed) {
		t.Fatalf("Recv after close: got %v, want ErrClosed", err)
	}
	if err := a.Send(&Message{Type: TypeSharedMemory}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close: got %v, want ErrClosed", err)
	}
}
