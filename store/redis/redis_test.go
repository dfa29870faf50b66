package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
)

func newStore(t *testing.T, timeout time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(Config{
		Client:       goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		CloseClient:  true,
		Prefix:       "test:",
		ReadTimeout:  timeout,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNilClient(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilClient)
}

func TestCompareAndSetMissingKeyIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Second)

	v, err := s.CompareAndSet(ctx, "k", []byte("x"), []byte("y"))
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.False(t, mr.Exists("test:k"), "a failed compare must not write")

	v, err = s.CompareAndSet(ctx, "k", nil, []byte("seed"))
	require.NoError(t, err)
	assert.Equal(t, "seed", string(v))

	v, err = s.CompareAndSet(ctx, "k", nil, []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, "seed", string(v))

	v, err = s.CompareAndSet(ctx, "k", []byte("seed"), []byte("next"))
	require.NoError(t, err)
	assert.Equal(t, "next", string(v))

	got, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "next", got)
}

func TestGetWaitsForWrite(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 2*time.Second)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = mr.Set("test:late", "here")
	}()
	v, err := s.Get(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, "here", string(v))
}

func TestGetTimesOut(t *testing.T) {
	s, _ := newStore(t, 100*time.Millisecond)
	start := time.Now()
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestServerDownIsAnError(t *testing.T) {
	s, err := New(Config{
		Client:      goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}),
		CloseClient: true,
		ReadTimeout: time.Second,
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CompareAndSet(context.Background(), "k", nil, []byte("v"))
	require.Error(t, err)
	_, err = s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrTimeout)
}

func TestBackendOverRedis(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, time.Second)

	a, err := casrdzv.New(ctx, s, "job-42", casrdzv.Options{})
	require.NoError(t, err)
	b, err := casrdzv.New(ctx, s, "job-42", casrdzv.Options{})
	require.NoError(t, err)

	_, _, ok, err := a.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, tok, ok, err := a.SetState(ctx, []byte("epoch-1"), casrdzv.NoToken)
	require.NoError(t, err)
	require.True(t, ok)

	state, got, ok, err := b.GetState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "epoch-1", string(state))
	assert.True(t, got.Equal(tok))
}
