// Package codec holds the encoders casrdzv uses at two levels: Sentinel turns
// opaque state bytes into the printable value held by the store, and the
// Codec[V] implementations turn typed state into those opaque bytes.
package codec

// Codec encodes/decodes values V to state bytes.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
