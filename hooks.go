package casrdzv

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The backend calls them inline with store round trips.
type Hooks interface {
	// SetState lost the CAS; the caller received a racing peer's state.
	StateConflict(key string)

	// A stored value failed to decode.
	StateCorrupt(key string, err error)

	// A store call failed. op ∈ {"get", "compare_set", "set", "open"}.
	StoreError(op, key string, err error)

	// SetState was called with a token minted by another backend type and
	// short-circuited to a read.
	ForeignToken(key, backend string)

	// Bootstrap inferred the host role, failed to host the store at endpoint
	// and fell back to connecting as a client.
	HostFallback(endpoint string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StateConflict(string)             {}
func (NopHooks) StateCorrupt(string, error)       {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) ForeignToken(string, string)      {}
func (NopHooks) HostFallback(string, error)       {}
