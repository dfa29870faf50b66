// Package redis implements store.Store on top of a Redis server. The
// compare-and-set runs as a Lua script so it is atomic on the server; Get
// polls until the key appears or the read timeout elapses.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/casrdzv/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// A missing key compares equal to "". The script returns the value held
// after the call.
var casScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then cur = '' end
if cur == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2])
  return ARGV[2]
end
return cur
`)

// errNotYet marks a Get that found no value; it drives the poll loop.
var errNotYet = errors.New("redis store: key not set")

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client

	// Prefix is prepended to every key, e.g. to share a database.
	Prefix string
	// ReadTimeout bounds Get when ctx has no deadline. Defaults to 60s.
	ReadTimeout time.Duration
	// PollInterval is the first wait between Get polls. Defaults to 10ms;
	// later waits back off up to 500ms.
	PollInterval time.Duration
}

type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
	prefix      string
	timeout     time.Duration
	poll        time.Duration
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	s := &Store{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		prefix:      cfg.Prefix,
		timeout:     cfg.ReadTimeout,
		poll:        cfg.PollInterval,
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.poll <= 0 {
		s.poll = 10 * time.Millisecond
	}
	return s, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	k := s.key(key)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.poll
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = s.timeout
	if d, ok := ctx.Deadline(); ok {
		b.MaxElapsedTime = time.Until(d)
	}

	v, err := backoff.RetryWithData(func() ([]byte, error) {
		v, err := s.rdb.Get(ctx, k).Bytes()
		if err == goredis.Nil {
			return nil, errNotYet
		}
		if err != nil {
			return nil, backoff.Permanent(err) // transport/server error
		}
		return v, nil
	}, backoff.WithContext(b, ctx))
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, errNotYet), errors.Is(err, context.DeadlineExceeded):
		return nil, store.ErrTimeout
	default:
		return nil, err
	}
}

func (s *Store) CompareAndSet(ctx context.Context, key string, expected, desired []byte) ([]byte, error) {
	res, err := casScript.Run(ctx, s.rdb, []string{s.key(key)}, expected, desired).Text()
	if err != nil {
		return nil, err
	}
	return []byte(res), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close() error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
