package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Transport marshaling: Values inside control messages
// ---------------------------------------------------------------------------

// cborEncMode uses canonical encoding for deterministic frames.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// valueEnvelope is the JSON/CBOR shape of a Value when it rides the
// message transport instead of the shared buffer.
type valueEnvelope struct {
	Kind   string   `json:"kind" cbor:"kind"`
	Bool   *bool    `json:"bool,omitempty" cbor:"bool,omitempty"`
	Number *float64 `json:"number,omitempty" cbor:"number,omitempty"`
	Str    *string  `json:"str,omitempty" cbor:"str,omitempty"`
	Token  *uint8   `json:"token,omitempty" cbor:"token,omitempty"`
}

var kindNames = map[Kind]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "boolean",
	KindNumber:    "number",
	KindDate:      "date",
	KindToken:     "token",
	KindString:    "string",
	KindBigInt:    "bigint",
	KindError:     "error",
	KindObjectRef: "object",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (v Value) envelope() (*valueEnvelope, error) {
	name, ok := kindNames[v.kind]
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal value of kind %d", v.kind)
	}
	env := &valueEnvelope{Kind: name}
	switch v.kind {
	case KindBool:
		env.Bool = &v.b
	case KindNumber, KindDate:
		n := v.num
		env.Number = &n
	case KindToken:
		t := uint8(v.tok)
		env.Token = &t
	case KindString, KindBigInt, KindError, KindObjectRef:
		s := v.str
		env.Str = &s
	}
	return env, nil
}

func fromEnvelope(env *valueEnvelope) (Value, error) {
	kind, ok := kindsByName[env.Kind]
	if !ok {
		return Value{}, fmt.Errorf("wire: unknown value kind %q", env.Kind)
	}
	v := Value{kind: kind}
	switch kind {
	case KindBool:
		if env.Bool == nil {
			return Value{}, fmt.Errorf("wire: boolean value missing payload")
		}
		v.b = *env.Bool
	case KindNumber, KindDate:
		if env.Number == nil {
			return Value{}, fmt.Errorf("wire: %s value missing payload", env.Kind)
		}
		v.num = *env.Number
	case KindToken:
		if env.Token == nil {
			return Value{}, fmt.Errorf("wire: token value missing payload")
		}
		tok := Token(*env.Token)
		if !tok.Valid() {
			return Value{}, fmt.Errorf("wire: unknown token index %d", *env.Token)
		}
		v.tok = tok
	case KindString, KindBigInt, KindError, KindObjectRef:
		if env.Str == nil {
			return Value{}, fmt.Errorf("wire: %s value missing payload", env.Kind)
		}
		v.str = *env.Str
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	env, err := v.envelope()
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("wire: unmarshal value: %w", err)
	}
	decoded, err := fromEnvelope(&env)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	env, err := v.envelope()
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(env)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var env valueEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("wire: unmarshal value: %w", err)
	}
	decoded, err := fromEnvelope(&env)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
