package util

// KeyPrefix scopes every rendezvous key in a shared store.
const KeyPrefix = "rendezvous."

// StateKey returns the store key holding the state of one rendezvous run.
func StateKey(runID string) string {
	return KeyPrefix + runID
}

// Clone returns a copy of b that never aliases it; nil stays nil.
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
