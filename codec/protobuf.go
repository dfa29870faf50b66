package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes typed state as a protobuf message. Marshaling is
// deterministic so equal messages produce equal tokens.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *pb.Round { return &pb.Round{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec protobuf: %w", err)
	}
	return b, nil
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	if err := proto.Unmarshal(b, m); err != nil {
		return m, fmt.Errorf("codec protobuf: %w", err)
	}
	return m, nil
}
