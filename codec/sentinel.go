package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

// NullSentinel is the stored value meaning "the key exists but no state was
// written yet". Every peer of a deployment must agree on it.
//
// The literal is itself valid base64 (of "canimadam"), so a state whose
// encoding equals it reads back as "no state".
const NullSentinel = "Y2FuaW1hZGFt"

// ErrCorrupt is returned by Sentinel.Decode for values it did not produce.
var ErrCorrupt = errors.New("codec: stored value is not valid encoded state")

// Sentinel renders state as standard padded base64 and reserves Null for the
// empty slot. The zero value uses NullSentinel.
type Sentinel struct {
	Null string
}

func (c Sentinel) null() []byte {
	if c.Null == "" {
		return []byte(NullSentinel)
	}
	return []byte(c.Null)
}

// NullValue returns the reserved stored value.
func (c Sentinel) NullValue() []byte { return c.null() }

// Encode never fails.
func (c Sentinel) Encode(state []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(state)))
	base64.StdEncoding.Encode(out, state)
	return out
}

// IsNull reports whether stored is the reserved value.
func (c Sentinel) IsNull(stored []byte) bool {
	return bytes.Equal(stored, c.null())
}

// Decode returns ok=false for the reserved value. Otherwise it returns the
// decoded state and a token holding a copy of stored.
func (c Sentinel) Decode(stored []byte) (state, token []byte, ok bool, err error) {
	if c.IsNull(stored) {
		return nil, nil, false, nil
	}
	state = make([]byte, base64.StdEncoding.DecodedLen(len(stored)))
	n, err := base64.StdEncoding.Decode(state, stored)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	token = append(make([]byte, 0, len(stored)), stored...)
	return state[:n], token, true, nil
}
