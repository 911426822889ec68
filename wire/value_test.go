package wire

import (
	"math"
	"testing"
	"time"
)

func TestObjectID_CallableSuffix(t *testing.T) {
	callable := NewObjectID("abc123", true)
	if !callable.Callable() {
		t.Errorf("%s should be callable", callable)
	}
	plain := NewObjectID("abc123", false)
	if plain.Callable() {
		t.Errorf("%s should not be callable", plain)
	}
	if callable == plain {
		t.Error("callable and non-callable ids must differ")
	}
}

func TestValue_Equal(t *testing.T) {
	date := time.UnixMilli(1700000000000)
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"undefined", Undefined(), Undefined(), true},
		{"null", Null(), Null(), true},
		{"undefined vs null", Undefined(), Null(), false},
		{"bools", Bool(true), Bool(true), true},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"numbers", Number(1.5), Number(1.5), true},
		{"nan equals nan", Number(math.NaN()), Number(math.NaN()), true},
		{"number vs date", Number(0), Date(time.UnixMilli(0)), false},
		{"dates", Date(date), Date(date), true},
		{"tokens", TokenValue(TokenGlobal), TokenValue(TokenGlobal), true},
		{"token mismatch", TokenValue(TokenGlobal), TokenValue(TokenRuntime), false},
		{"strings", String("x"), String("x"), true},
		{"errors", Error("boom"), Error("boom"), true},
		{"object refs", ObjectRef("id!o"), ObjectRef("id!o"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s): got %t, want %t", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestToken_Validity(t *testing.T) {
	for _, tok := range []Token{TokenGlobal, TokenRuntime, TokenChannel} {
		if !tok.Valid() {
			t.Errorf("token %s should be valid", tok)
		}
	}
	if Token(200).Valid() {
		t.Error("token 200 should be invalid")
	}
}

func TestDate_MillisecondPrecision(t *testing.T) {
	exact := time.UnixMilli(1700000000123)
	v := Date(exact.Add(400 * time.Microsecond))
	if !v.Time().Equal(exact) {
		t.Errorf("Time: got %v, want %v", v.Time(), exact)
	}
}
