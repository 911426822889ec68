package wire

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Value: closed tagged union of everything that crosses the channel
// ---------------------------------------------------------------------------

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindDate
	KindToken
	KindString
	KindBigInt
	KindError
	KindObjectRef
)

// Wire tag bytes. These are fixed protocol constants shared with every
// peer implementation; renumbering them is a wire format break.
const (
	tagUndefined byte = 0
	tagNull      byte = 1
	tagFalse     byte = 2
	tagTrue      byte = 3
	tagNumber    byte = 4
	tagDate      byte = 5
	tagToken     byte = 6
	tagString    byte = 10
	tagBigInt    byte = 11
	tagError     byte = 254
	tagObjectRef byte = 255
)

// Value is one serialized value. The zero Value is Undefined.
type Value struct {
	kind Kind
	b    bool
	num  float64 // Number payload, or Date epoch-milliseconds
	str  string  // String, BigInt digits, Error message, or ObjectRef id
	tok  Token
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{kind: KindUndefined} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a float64 value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date returns a timestamp value. The wire representation is the epoch
// time in milliseconds as a float64, so sub-millisecond precision is lost.
func Date(t time.Time) Value {
	return Value{kind: KindDate, num: float64(t.UnixMilli())}
}

// TokenValue returns a well-known token reference.
func TokenValue(tok Token) Value { return Value{kind: KindToken, tok: tok} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// BigInt returns an arbitrary-precision integer value holding its decimal
// digit string. The wire tag is reserved but the payload encoding is not
// implemented: encoding one fails with ErrBigIntUnsupported.
func BigInt(digits string) Value { return Value{kind: KindBigInt, str: digits} }

// Error returns a failure value carrying a message. It is the terminal
// frame the owner emits when dispatch fails, so the remote side always
// unblocks.
func Error(msg string) Value { return Value{kind: KindError, str: msg} }

// ObjectRef returns a reference to an object registered on the owner side.
func ObjectRef(id ObjectID) Value { return Value{kind: KindObjectRef, str: string(id)} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Number returns the float64 payload.
func (v Value) Number() float64 { return v.num }

// Time returns the Date payload as a time.Time in UTC.
func (v Value) Time() time.Time { return time.UnixMilli(int64(v.num)).UTC() }

// Token returns the well-known token payload.
func (v Value) Token() Token { return v.tok }

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Digits returns the BigInt decimal digit string.
func (v Value) Digits() string { return v.str }

// Message returns the Error payload.
func (v Value) Message() string { return v.str }

// ObjectID returns the ObjectRef payload.
func (v Value) ObjectID() ObjectID { return ObjectID(v.str) }

// Equal reports whether two values are the same variant with the same
// payload. NaN numbers compare equal to each other so that a decoded NaN
// matches the NaN that was encoded.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindDate:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindToken:
		return v.tok == o.tok
	case KindString, KindBigInt, KindError, KindObjectRef:
		return v.str == o.str
	}
	return false
}

// String renders the value for logs and test failures.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return fmt.Sprintf("number(%v)", v.num)
	case KindDate:
		return fmt.Sprintf("date(%s)", v.Time().Format(time.RFC3339Nano))
	case KindToken:
		return fmt.Sprintf("token(%s)", v.tok)
	case KindString:
		return fmt.Sprintf("string(%q)", v.str)
	case KindBigInt:
		return fmt.Sprintf("bigint(%s)", v.str)
	case KindError:
		return fmt.Sprintf("error(%q)", v.str)
	case KindObjectRef:
		return fmt.Sprintf("object(%s)", v.str)
	}
	return fmt.Sprintf("invalid(%d)", v.kind)
}

// ---------------------------------------------------------------------------
// ObjectID: cross-boundary object identity
// ---------------------------------------------------------------------------

// ObjectID suffixes marking whether the referent is callable. The suffix
// lets the remote side decide call behavior without a round trip.
const (
	suffixCallable    = "!c"
	suffixNonCallable = "!o"
)

// ObjectID is an opaque, globally unique identifier for an object owned by
// one side of the bridge.
type ObjectID string

// NewObjectID builds an id from a unique token and the referent's
// callability.
func NewObjectID(token string, callable bool) ObjectID {
	if callable {
		return ObjectID(token + suffixCallable)
	}
	return ObjectID(token + suffixNonCallable)
}

// Callable reports whether the id refers to a callable object.
func (id ObjectID) Callable() bool {
	return strings.HasSuffix(string(id), suffixCallable)
}
