package casrdzv

// Token is the CAS handle returned with every state. It is either NoToken (the
// zero value: "I believe nothing was written yet") or a snapshot of the exact
// stored bytes, tagged with the name of the backend type that minted it.
//
// Tokens are snapshots, not versions: a token is valid only while the store
// still holds exactly its bytes.
type Token struct {
	backend string
	raw     []byte
}

// NoToken is the empty token.
var NoToken Token

// NewToken builds a token for backend. It is meant for tests and for
// backends that share this Token type; backend must be non-empty.
func NewToken(backend string, raw []byte) Token {
	if backend == "" {
		panic("casrdzv: token backend must be non-empty")
	}
	return Token{backend: backend, raw: append(make([]byte, 0, len(raw)), raw...)}
}

// IsZero reports whether t is NoToken.
func (t Token) IsZero() bool { return t.backend == "" }

// Backend names the backend type that minted t; empty for NoToken.
func (t Token) Backend() string { return t.backend }

// Bytes returns a copy of the snapshot.
func (t Token) Bytes() []byte {
	if t.IsZero() {
		return nil
	}
	return append(make([]byte, 0, len(t.raw)), t.raw...)
}

// Equal reports whether both tokens come from the same backend type and hold
// the same snapshot.
func (t Token) Equal(o Token) bool {
	return t.backend == o.backend && string(t.raw) == string(o.raw)
}

func (t Token) String() string {
	if t.IsZero() {
		return "<no token>"
	}
	return t.backend + ":" + string(t.raw)
}
