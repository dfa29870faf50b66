package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes typed state with fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// Peers compare tokens byte for byte, so two peers writing the same logical
// state only agree on the stored bytes under deterministic encoding. NewCBOR
// therefore always uses Core Deterministic Encoding (RFC 8949 §4.2.1).
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

// NewCBOR constructs a CBOR codec. maxNested bounds decoding depth; 0 keeps
// the library default.
func NewCBOR[V any](maxNested int) (CBOR[V], error) {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec cbor: %w", err)
	}
	dm, err := (cbor.DecOptions{MaxNestedLevels: maxNested}).DecMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec cbor: %w", err)
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error. Meant for package-level
// variables.
func MustCBOR[V any](maxNested int) CBOR[V] {
	c, err := NewCBOR[V](maxNested)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec cbor: %w", err)
	}
	return b, nil
}

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("codec cbor: %w", err)
	}
	return v, nil
}
