package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/casrdzv/internal/util"
	"github.com/unkn0wn-root/casrdzv/store"
)

// Store keeps values in-process. It backs the TCP store server and serves as
// a single-process store for tests and embedding.
//
// Get blocks until the key is written. Waiters park on a per-key channel that
// is closed on the first write of that key.
type Store struct {
	mu      sync.Mutex
	data    map[string][]byte
	waiters map[string]chan struct{}
	closed  chan struct{}
	once    sync.Once

	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New returns an empty store. readTimeout bounds Get when ctx has no deadline;
// 0 means wait until ctx ends.
func New(readTimeout time.Duration) *Store {
	return &Store{
		data:    make(map[string][]byte),
		waiters: make(map[string]chan struct{}),
		closed:  make(chan struct{}),
		timeout: readTimeout,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
	}
	for {
		s.mu.Lock()
		if s.isClosed() {
			s.mu.Unlock()
			return nil, store.ErrClosed
		}
		if v, ok := s.data[key]; ok {
			s.mu.Unlock()
			return util.Clone(v), nil
		}
		ch, ok := s.waiters[key]
		if !ok {
			ch = make(chan struct{})
			s.waiters[key] = ch
		}
		s.mu.Unlock()

		select {
		case <-ch:
		case <-s.closed:
			return nil, store.ErrClosed
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, store.ErrTimeout
			}
			return nil, ctx.Err()
		}
	}
}

func (s *Store) CompareAndSet(_ context.Context, key string, expected, desired []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return nil, store.ErrClosed
	}
	cur := s.data[key] // missing => unset default (empty)
	if !bytes.Equal(cur, expected) {
		return util.Clone(cur), nil
	}
	s.setLocked(key, desired)
	return util.Clone(desired), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return store.ErrClosed
	}
	s.setLocked(key, value)
	return nil
}

// Len reports the number of keys held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) setLocked(key string, value []byte) {
	v := util.Clone(value)
	if v == nil {
		v = []byte{}
	}
	s.data[key] = v
	if ch, ok := s.waiters[key]; ok {
		close(ch)
		delete(s.waiters, key)
	}
}

func (s *Store) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close wakes all blocked readers with ErrClosed. Safe to call multiple times.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
