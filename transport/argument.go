package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/threadware/syncbridge/wire"
)

// Argument is one serialized call argument: either a scalar wire value or
// a list whose elements were classified independently. Lists nest, so a
// list mixing literals and object references serializes element-wise.
type Argument struct {
	scalar   wire.Value
	elements []Argument
	isList   bool
}

// Scalar wraps a single wire value as an argument.
func Scalar(v wire.Value) Argument {
	return Argument{scalar: v}
}

// List wraps element-wise serialized arguments.
func List(elems ...Argument) Argument {
	if elems == nil {
		elems = []Argument{}
	}
	return Argument{elements: elems, isList: true}
}

// IsList reports whether the argument is a list.
func (a Argument) IsList() bool { return a.isList }

// Value returns the scalar payload.
func (a Argument) Value() wire.Value { return a.scalar }

// Elements returns the list payload.
func (a Argument) Elements() []Argument { return a.elements }

// MarshalJSON implements json.Marshaler. Lists become JSON arrays,
// scalars become value envelopes.
func (a Argument) MarshalJSON() ([]byte, error) {
	if a.isList {
		return json.Marshal(a.elements)
	}
	return json.Marshal(a.scalar)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Argument) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var elems []Argument
		if err := json.Unmarshal(data, &elems); err != nil {
			return fmt.Errorf("transport: unmarshal argument list: %w", err)
		}
		*a = List(elems...)
		return nil
	}
	var v wire.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Scalar(v)
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (a Argument) MarshalCBOR() ([]byte, error) {
	if a.isList {
		return cborEncMode.Marshal(a.elements)
	}
	return a.scalar.MarshalCBOR()
}

// UnmarshalCBOR implements cbor.Unmarshaler. A CBOR array (major type 4)
// is a list; anything else is a scalar envelope.
func (a *Argument) UnmarshalCBOR(data []byte) error {
	if len(data) > 0 && data[0]>>5 == 4 {
		var elems []Argument
		if err := cbor.Unmarshal(data, &elems); err != nil {
			return fmt.Errorf("transport: unmarshal argument list: %w", err)
		}
		*a = List(elems...)
		return nil
	}
	var v wire.Value
	if err := v.UnmarshalCBOR(data); err != nil {
		return err
	}
	*a = Scalar(v)
	return nil
}
