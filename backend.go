package casrdzv

import (
	"bytes"
	"context"

	"github.com/unkn0wn-root/casrdzv/codec"
	"github.com/unkn0wn-root/casrdzv/internal/util"
	"github.com/unkn0wn-root/casrdzv/store"
)

// BackendName is reported by Backend.Name and stamped on every token it mints.
const BackendName = "cas-store"

// Backend stores rendezvous state under one key of a shared store. It keeps no
// local copy: every call is a fresh round trip, since a cached value would
// hand out tokens that no longer match the store.
type Backend struct {
	st         store.Store
	key        string
	codec      codec.Sentinel
	log        Logger
	hooks      Hooks
	closeStore bool
}

func newBackend(ctx context.Context, st store.Store, runID string, opts Options) (*Backend, error) {
	if st == nil {
		return nil, &ConfigError{Field: "store", Msg: "store is required"}
	}
	if runID == "" {
		return nil, &ConfigError{Field: "run_id", Msg: "the run id must be a non-empty string"}
	}

	b := &Backend{
		st:         st,
		key:        util.StateKey(runID),
		codec:      opts.Codec,
		log:        OrNopLogger(opts.Logger),
		hooks:      OrNopHooks(opts.Hooks),
		closeStore: opts.CloseStore,
	}

	// Get blocks until a key exists, which is wrong for "no state yet". Seed
	// the null value with a CAS against the unset default so concurrent
	// first-time construction converges on one value and never clobbers
	// state a faster peer already wrote.
	seeded, err := b.call(ctx, "compare_set", func(ctx context.Context) ([]byte, error) {
		return b.st.CompareAndSet(ctx, b.key, nil, b.codec.NullValue())
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("rendezvous key ready", Fields{"key": b.key, "empty": b.codec.IsNull(seeded)})
	return b, nil
}

// Name is BackendName.
func (b *Backend) Name() string { return BackendName }

// Key is the store key holding the state.
func (b *Backend) Key() string { return b.key }

// Store returns the underlying store.
func (b *Backend) Store() store.Store { return b.st }

// GetState reads the key once; ok=false means no state has been written.
func (b *Backend) GetState(ctx context.Context) ([]byte, Token, bool, error) {
	raw, err := b.call(ctx, "get", func(ctx context.Context) ([]byte, error) {
		return b.st.Get(ctx, b.key)
	})
	if err != nil {
		return nil, NoToken, false, err
	}
	return b.decode(raw)
}

// SetState does one compare-and-set against tok and returns whatever the
// store holds afterwards. A token minted by another backend skips the CAS.
func (b *Backend) SetState(ctx context.Context, state []byte, tok Token) ([]byte, Token, bool, error) {
	desired := b.codec.Encode(state)

	var expected []byte
	switch {
	case tok.IsZero():
		expected = b.codec.NullValue()
	case tok.Backend() != b.Name():
		// cannot match anything this backend wrote; skip the CAS
		b.hooks.ForeignToken(b.key, tok.Backend())
		b.log.Debug("SetState with foreign token, returning current state", Fields{"key": b.key, "backend": tok.Backend()})
		return b.GetState(ctx)
	default:
		expected = tok.raw
	}

	raw, err := b.call(ctx, "compare_set", func(ctx context.Context) ([]byte, error) {
		return b.st.CompareAndSet(ctx, b.key, expected, desired)
	})
	if err != nil {
		return nil, NoToken, false, err
	}
	if !bytes.Equal(raw, desired) {
		b.hooks.StateConflict(b.key)
		b.log.Debug("SetState lost the race", Fields{"key": b.key})
	}
	return b.decode(raw)
}

// Close releases the store when Options.CloseStore was set.
func (b *Backend) Close() error {
	if !b.closeStore {
		return nil
	}
	return WrapStoreError("close", b.key, b.st.Close())
}

// call is the single boundary into the store client: every store failure
// leaves here as a *ConnectionError.
func (b *Backend) call(ctx context.Context, op string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	raw, err := fn(ctx)
	if err != nil {
		b.hooks.StoreError(op, b.key, err)
		b.log.Warn("store call failed", Fields{"op": op, "key": b.key, "err": err})
		return nil, WrapStoreError(op, b.key, err)
	}
	return raw, nil
}

func (b *Backend) decode(raw []byte) ([]byte, Token, bool, error) {
	state, tok, ok, err := b.codec.Decode(raw)
	if err != nil {
		b.hooks.StateCorrupt(b.key, err)
		b.log.Error("stored state is corrupt", Fields{"key": b.key, "err": err})
		return nil, NoToken, false, &StateError{Key: b.key, Err: err}
	}
	if !ok {
		return nil, NoToken, false, nil
	}
	return state, Token{backend: b.Name(), raw: tok}, true, nil
}
