package casrdzv

import (
	"context"

	"github.com/unkn0wn-root/casrdzv/codec"
)

// Typed layers a Codec[V] over a StateBackend so callers exchange V instead
// of opaque bytes. Tokens and CAS semantics are the backend's.
type Typed[V any] struct {
	b     StateBackend
	codec codec.Codec[V]
}

// NewTyped wraps b so state is exchanged as V through c.
func NewTyped[V any](b StateBackend, c codec.Codec[V]) *Typed[V] {
	return &Typed[V]{b: b, codec: c}
}

// Get reads and decodes the current state.
func (t *Typed[V]) Get(ctx context.Context) (V, Token, bool, error) {
	state, tok, ok, err := t.b.GetState(ctx)
	return t.decode(state, tok, ok, err)
}

// Set encodes v and performs one SetState. An encode failure is returned
// before any store round trip.
func (t *Typed[V]) Set(ctx context.Context, v V, tok Token) (V, Token, bool, error) {
	state, err := t.codec.Encode(v)
	if err != nil {
		var zero V
		return zero, NoToken, false, err
	}
	cur, curTok, ok, err := t.b.SetState(ctx, state, tok)
	return t.decode(cur, curTok, ok, err)
}

func (t *Typed[V]) decode(state []byte, tok Token, ok bool, err error) (V, Token, bool, error) {
	var zero V
	if err != nil || !ok {
		return zero, NoToken, false, err
	}
	v, err := t.codec.Decode(state)
	if err != nil {
		return zero, NoToken, false, &StateError{Key: t.key(), Err: err}
	}
	return v, tok, true, nil
}

func (t *Typed[V]) key() string {
	if k, ok := t.b.(interface{ Key() string }); ok {
		return k.Key()
	}
	return ""
}
