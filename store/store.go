// Package store defines the shared key-value store used by casrdzv.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the bytes last written for a key. A key that was never written compares
// equal to the empty value in CompareAndSet (the store's "unset" default), but
// Get on such a key blocks until it is written.
//
// Important: the keyspace "rendezvous.<run id>" is owned by casrdzv. External
// code MUST NOT write values under this prefix; foreign writes surface as
// corrupt state on the next read.
package store

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned when a blocking call outlives its read timeout.
	ErrTimeout = errors.New("store: timed out")
	// ErrClosed is returned by calls on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store is the minimal shared store contract. It must be safe for concurrent
// use and every call must be a fresh read of the shared state.
type Store interface {
	// Get blocks until key has a value and returns it. If the key does not
	// appear before the read timeout or ctx ends, it returns ErrTimeout or the
	// context error.
	Get(ctx context.Context, key string) ([]byte, error)

	// CompareAndSet atomically writes desired iff the current value equals
	// expected and returns the value held after the operation either way.
	CompareAndSet(ctx context.Context, key string, expected, desired []byte) ([]byte, error)

	// Set unconditionally writes value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources.
	Close() error
}

// RemoteError is a failure reported by the far side of a networked store.
type RemoteError struct {
	Op  string
	Msg string
}

func (e *RemoteError) Error() string {
	return "store: remote " + e.Op + " failed: " + e.Msg
}
