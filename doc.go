// Package casrdzv implements a compare-and-swap (CAS) state backend that lets
// distributed peers coordinate rendezvous state through one shared key-value
// store, plus (in package bootstrap) the logic deciding which peer hosts that
// store.
//
// Components:
//   - store.Store: shared byte store with a blocking Get and an atomic
//     CompareAndSet (store/tcp, store/redis, store/etcd, store/memory).
//   - codec.Sentinel: base64 rendering of state with a reserved "no state"
//     literal.
//   - Backend: GetState / SetState over one key per run id.
//
// Keys:
//
//	rendezvous.<run id>  - the run's state (null literal or base64 state)
//
// CAS pattern:
//
//	state, tok, ok, err := b.GetState(ctx)        // ok=false: no state yet
//	next := advance(state)
//	cur, tok, ok, err := b.SetState(ctx, next, tok) // writes iff store still holds tok
//	// if cur is not next, a peer won: recompute from cur and retry with tok
package casrdzv
