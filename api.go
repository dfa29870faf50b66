package casrdzv

import (
	"context"

	"github.com/unkn0wn-root/casrdzv/codec"
	"github.com/unkn0wn-root/casrdzv/store"
)

// StateBackend is the contract the rendezvous protocol drives. Both calls are
// single attempts: retrying on conflict belongs to the caller, which feeds the
// returned token into the next SetState.
type StateBackend interface {
	Name() string

	// GetState returns the current state; ok=false means no state was written.
	GetState(ctx context.Context) (state []byte, tok Token, ok bool, err error)

	// SetState writes state iff the store still holds what tok snapshots and
	// returns whatever the store holds afterwards (the caller's own state or a
	// racing peer's).
	SetState(ctx context.Context, state []byte, tok Token) (cur []byte, curTok Token, ok bool, err error)
}

// Options tune the backend. The zero value is ready to use.
type Options struct {
	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Codec renders state for the store. Override Codec.Null only if every
	// peer of the deployment does the same.
	Codec codec.Sentinel

	// CloseStore makes Close release the store; set it only when the backend
	// exclusively owns it.
	CloseStore bool
}

var _ StateBackend = (*Backend)(nil)

// New wraps st and seeds the rendezvous key for runID.
func New(ctx context.Context, st store.Store, runID string, opts Options) (*Backend, error) {
	return newBackend(ctx, st, runID, opts)
}
