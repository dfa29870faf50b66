package codec

import (
	"encoding/json"
	"fmt"
)

// JSON encodes typed state with encoding/json. Handy when operators inspect
// state by hand; prefer Msgpack or CBOR for compact payloads.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec json: %w", err)
	}
	return b, nil
}

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("codec json: %w", err)
	}
	return v, nil
}
