package codec

import "fmt"

// Limit wraps another codec and refuses to decode state larger than
// MaxDecode bytes, so a peer cannot make the others allocate unbounded
// memory through the shared store. MaxDecode <= 0 disables the check.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("codec: state too large: %d > %d bytes", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
