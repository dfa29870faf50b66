package bootstrap

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
	"github.com/unkn0wn-root/casrdzv/store/memory"
	"github.com/unkn0wn-root/casrdzv/store/tcp"
)

func boolp(b bool) *bool { return &b }

// noAddrs resolves nothing, keeping tests off DNS.
func noAddrs(context.Context, string) ([]net.IP, error) { return nil, errors.New("no such host") }

// fakeIdentity makes every host in names look local.
func fakeIdentity(names ...string) func(context.Context) (Identity, error) {
	return func(context.Context) (Identity, error) {
		return Identity{Hostname: "test-host", CanonicalNames: names}, nil
	}
}

type openCall struct{ server bool }

// scriptedOpener fails server attempts when failServer is set and client
// attempts when failClient is set.
type scriptedOpener struct {
	mu         sync.Mutex
	calls      []openCall
	failServer bool
	failClient bool
}

func (o *scriptedOpener) open(_ context.Context, cfg tcp.Config) (store.Store, error) {
	o.mu.Lock()
	o.calls = append(o.calls, openCall{server: cfg.Server})
	o.mu.Unlock()
	if cfg.Server && o.failServer {
		return nil, errors.New("address already in use")
	}
	if !cfg.Server && o.failClient {
		return nil, errors.New("connection refused")
	}
	return memory.New(time.Second), nil
}

type fallbackHooks struct {
	casrdzv.NopHooks
	fallbacks int
	opens     int
}

func (h *fallbackHooks) HostFallback(string, error) { h.fallbacks++ }
func (h *fallbackHooks) StoreError(op, _ string, _ error) {
	if op == "open" {
		h.opens++
	}
}

func TestInferredHostFallsBackToClient(t *testing.T) {
	o := &scriptedOpener{failServer: true}
	h := &fallbackHooks{}
	res, err := Open(context.Background(), Config{RunID: "job", Endpoint: "rdzv.example:1234"}, Options{
		Identity: fakeIdentity("rdzv.example"),
		Resolve:  noAddrs,
		Open:     o.open,
		Hooks:    h,
	})
	require.NoError(t, err)
	assert.Equal(t, RoleClient, res.Role)
	assert.True(t, res.Inferred)
	assert.True(t, res.FellBack)
	assert.Equal(t, []openCall{{server: true}, {server: false}}, o.calls)
	assert.Equal(t, 1, h.fallbacks)
	assert.Equal(t, "rdzv.example", res.Endpoint.Host)
	assert.Equal(t, 1234, res.Endpoint.Port)
}

func TestExplicitHostFailureIsFatal(t *testing.T) {
	o := &scriptedOpener{failServer: true}
	h := &fallbackHooks{}
	_, err := Open(context.Background(), Config{RunID: "job", Endpoint: "rdzv.example:1234", IsHost: boolp(true)}, Options{
		Identity: fakeIdentity("rdzv.example"),
		Open:     o.open,
		Hooks:    h,
	})
	require.ErrorIs(t, err, casrdzv.ErrConnection)
	assert.Len(t, o.calls, 1, "explicit host must not retry")
	assert.Equal(t, 0, h.fallbacks)
	assert.Equal(t, 1, h.opens)
}

func TestFallbackFailureIsFatal(t *testing.T) {
	o := &scriptedOpener{failServer: true, failClient: true}
	_, err := Open(context.Background(), Config{RunID: "job", Endpoint: "localhost"}, Options{Open: o.open, Identity: fakeIdentity(), Resolve: noAddrs})
	require.ErrorIs(t, err, casrdzv.ErrConnection)
	assert.Len(t, o.calls, 2, "exactly one fallback attempt")
}

func TestClientFailureDoesNotRetry(t *testing.T) {
	o := &scriptedOpener{failClient: true}
	_, err := Open(context.Background(), Config{RunID: "job", Endpoint: "far.away:1"}, Options{Open: o.open, Identity: fakeIdentity(), Resolve: noAddrs})
	require.ErrorIs(t, err, casrdzv.ErrConnection)
	assert.Len(t, o.calls, 1)
}

func TestExplicitClientOverridesMatch(t *testing.T) {
	o := &scriptedOpener{}
	res, err := Open(context.Background(), Config{RunID: "job", Endpoint: "localhost", IsHost: boolp(false)}, Options{Open: o.open})
	require.NoError(t, err)
	assert.Equal(t, RoleClient, res.Role)
	assert.False(t, res.Inferred)
	assert.Equal(t, []openCall{{server: false}}, o.calls)
}

func TestIdentityNotLookedUpWithOverride(t *testing.T) {
	o := &scriptedOpener{}
	_, err := Open(context.Background(), Config{RunID: "job", IsHost: boolp(true)}, Options{
		Open: o.open,
		Identity: func(context.Context) (Identity, error) {
			t.Fatal("identity lookup with explicit is_host")
			return Identity{}, nil
		},
	})
	require.NoError(t, err)
}

func TestIdentityLookupErrorIsNotFatal(t *testing.T) {
	o := &scriptedOpener{}
	res, err := Open(context.Background(), Config{RunID: "job", Endpoint: "node-1:9"}, Options{
		Open: o.open,
		Identity: func(context.Context) (Identity, error) {
			return Identity{Hostname: "node-1"}, errors.New("no such host")
		},
		Resolve: noAddrs,
	})
	require.NoError(t, err)
	assert.Equal(t, RoleServer, res.Role)
}

// An alias of this machine that only matches by address still hosts.
func TestAliasResolvingToLocalAddressHosts(t *testing.T) {
	o := &scriptedOpener{}
	var asked string
	res, err := Open(context.Background(), Config{RunID: "job", Endpoint: "rdzv-alias:29500"}, Options{
		Open: o.open,
		Identity: func(context.Context) (Identity, error) {
			return Identity{Hostname: "vm", Addrs: []net.IP{net.ParseIP("10.1.2.3")}}, nil
		},
		Resolve: func(_ context.Context, host string) ([]net.IP, error) {
			asked = host
			return []net.IP{net.ParseIP("10.1.2.3")}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "rdzv-alias", asked)
	assert.Equal(t, RoleServer, res.Role)
	assert.Equal(t, []openCall{{server: true}}, o.calls)
}

func TestNoResolveWithOverride(t *testing.T) {
	o := &scriptedOpener{}
	_, err := Open(context.Background(), Config{RunID: "job", Endpoint: "somewhere", IsHost: boolp(false)}, Options{
		Open: o.open,
		Resolve: func(context.Context, string) ([]net.IP, error) {
			t.Fatal("endpoint resolved with explicit is_host")
			return nil, nil
		},
	})
	require.NoError(t, err)
}

func TestCustomRoleFunc(t *testing.T) {
	o := &scriptedOpener{}
	var got Endpoint
	res, err := Open(context.Background(), Config{RunID: "job", Endpoint: "anything:7"}, Options{
		Open:     o.open,
		Identity: fakeIdentity(),
		Resolve: func(context.Context, string) ([]net.IP, error) {
			return []net.IP{net.ParseIP("192.0.2.1")}, nil
		},
		Role: func(override *bool, _ Identity, ep Endpoint) Role {
			got = ep
			return RoleServer
		},
	})
	require.NoError(t, err)
	assert.Equal(t, RoleServer, res.Role)
	assert.Equal(t, "anything", got.Host)
	assert.Equal(t, 7, got.Port)
	assert.Equal(t, []net.IP{net.ParseIP("192.0.2.1")}, got.Addrs)
}

func TestConfigErrors(t *testing.T) {
	cases := map[string]Config{
		"empty run id":      {},
		"bad store type":    {RunID: "job", StoreType: "etcd"},
		"negative timeout":  {RunID: "job", ReadTimeout: -1},
		"bad endpoint port": {RunID: "job", Endpoint: "host:99999"},
	}
	for name, cfg := range cases {
		_, err := Open(context.Background(), cfg, Options{Open: (&scriptedOpener{}).open})
		assert.ErrorIs(t, err, casrdzv.ErrConfiguration, name)
		assert.NotErrorIs(t, err, casrdzv.ErrConnection, name)
	}
}

func TestStoreTypeIsNormalized(t *testing.T) {
	require.NoError(t, Config{RunID: "job", StoreType: "  TCP "}.Validate())
}

// Two peers on one machine both infer they host; the second cannot bind and
// ends up a client of the first.
func TestTwoLocalPeersOverTCP(t *testing.T) {
	ctx := context.Background()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := Config{RunID: "job-42", Endpoint: "127.0.0.1:" + strconv.Itoa(port), ReadTimeout: 2}

	first, res1, err := CreateBackend(ctx, cfg, Options{})
	require.NoError(t, err)
	defer first.Close()
	assert.Equal(t, RoleServer, res1.Role)

	second, res2, err := CreateBackend(ctx, cfg, Options{})
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, RoleClient, res2.Role)
	assert.True(t, res2.FellBack)

	_, tok, ok, err := first.SetState(ctx, []byte("group-epoch-1"), casrdzv.NoToken)
	require.NoError(t, err)
	require.True(t, ok)

	state, got, ok, err := second.GetState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "group-epoch-1", string(state))
	assert.True(t, got.Equal(tok))
}

func TestCreateBackendRejectsEmptyRunID(t *testing.T) {
	_, _, err := CreateBackend(context.Background(), Config{}, Options{Open: (&scriptedOpener{}).open})
	require.ErrorIs(t, err, casrdzv.ErrConfiguration)
}
