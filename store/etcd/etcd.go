// Package etcd implements store.Store on an etcd v3 cluster. CompareAndSet
// is a transaction guarded by the key's mod revision; Get watches the key
// when it does not exist yet.
package etcd

import (
	"bytes"
	"context"
	"errors"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/unkn0wn-root/casrdzv/internal/util"
	"github.com/unkn0wn-root/casrdzv/store"
)

var ErrNilClient = errors.New("etcd store: nil client")

type Config struct {
	Client      *clientv3.Client
	CloseClient bool

	// Prefix is prepended to every key, e.g. "/rdzv/".
	Prefix string
	// ReadTimeout bounds Get when ctx has no deadline. Defaults to 60s.
	ReadTimeout time.Duration
}

type Store struct {
	cli         *clientv3.Client
	closeClient bool
	prefix      string
	timeout     time.Duration
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	s := &Store{cli: cfg.Client, closeClient: cfg.CloseClient, prefix: cfg.Prefix, timeout: cfg.ReadTimeout}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	return s, nil
}

// Dial connects to endpoints and returns a store that owns the client.
func Dial(endpoints []string, prefix string, readTimeout time.Duration) (*Store, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return New(Config{Client: cli, CloseClient: true, Prefix: prefix, ReadTimeout: readTimeout})
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	k := s.key(key)

	resp, err := s.cli.Get(ctx, k)
	if err != nil {
		return nil, mapCtx(ctx, err)
	}
	if len(resp.Kvs) > 0 {
		return resp.Kvs[0].Value, nil
	}

	// watch from the revision after the read so no write slips between
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()
	wch := s.cli.Watch(wctx, k, clientv3.WithRev(resp.Header.Revision+1), clientv3.WithFilterDelete())
	for wr := range wch {
		if err := wr.Err(); err != nil {
			return nil, mapCtx(ctx, err)
		}
		for _, ev := range wr.Events {
			if ev.Type == mvccpb.PUT {
				return util.Clone(ev.Kv.Value), nil
			}
		}
	}
	return nil, mapCtx(ctx, ctx.Err())
}

func (s *Store) CompareAndSet(ctx context.Context, key string, expected, desired []byte) ([]byte, error) {
	k := s.key(key)

	resp, err := s.cli.Get(ctx, k)
	if err != nil {
		return nil, err
	}
	cur, rev := current(resp.Kvs)
	for {
		if !bytes.Equal(cur, expected) {
			return cur, nil
		}
		// a missing key has mod revision 0, so this also guards creation
		tx, err := s.cli.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(k), "=", rev)).
			Then(clientv3.OpPut(k, string(desired))).
			Else(clientv3.OpGet(k)).
			Commit()
		if err != nil {
			return nil, err
		}
		if tx.Succeeded {
			return util.Clone(desired), nil
		}
		cur, rev = current(tx.Responses[0].GetResponseRange().Kvs)
	}
}

func current(kvs []*mvccpb.KeyValue) ([]byte, int64) {
	if len(kvs) == 0 {
		return []byte{}, 0
	}
	return kvs[0].Value, kvs[0].ModRevision
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.cli.Put(ctx, s.key(key), string(value))
	return err
}

// Close releases the client only when this store owns it.
func (s *Store) Close() error {
	if s.closeClient {
		return s.cli.Close()
	}
	return nil
}

func mapCtx(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return store.ErrTimeout
	}
	if err == nil {
		return store.ErrClosed
	}
	return err
}
