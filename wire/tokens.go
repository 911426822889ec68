package wire

import "fmt"

// ---------------------------------------------------------------------------
// Well-known tokens: fixed singletons exchanged by index
// ---------------------------------------------------------------------------

// TokensVersion is the version of the token enumeration. Both ends of a
// channel must agree on it at build time; it changes whenever a token is
// added or renumbered.
const TokensVersion = 1

// Token indexes a well-known singleton shared by both ends. Tokens cross
// the wire as a single index byte instead of a serialized value.
type Token uint8

const (
	// TokenGlobal names the owner's global namespace object.
	TokenGlobal Token = iota
	// TokenRuntime names the owner's embedded runtime instance.
	TokenRuntime
	// TokenChannel names the shared channel itself.
	TokenChannel

	tokenCount
)

// Valid reports whether t is within the enumeration.
func (t Token) Valid() bool { return t < tokenCount }

func (t Token) String() string {
	switch t {
	case TokenGlobal:
		return "global"
	case TokenRuntime:
		return "runtime"
	case TokenChannel:
		return "channel"
	}
	return fmt.Sprintf("token-%d", uint8(t))
}
