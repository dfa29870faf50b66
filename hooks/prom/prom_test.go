package prom

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
	"github.com/unkn0wn-root/casrdzv/store/memory"
)

func TestHookCounters(t *testing.T) {
	m := New("rdzv")
	m.StateConflict("k")
	m.StateConflict("k")
	m.StateCorrupt("k", errors.New("x"))
	m.StoreError("get", "k", errors.New("x"))
	m.ForeignToken("k", "etcd-v2")
	m.HostFallback("node:1", errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corrupt))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.foreignTokens.WithLabelValues("etcd-v2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hostFallbacks))
}

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	m := New("rdzv")
	st := m.Store(memory.New(50 * time.Millisecond))
	defer st.Close()

	b, err := casrdzv.New(ctx, st, "job", casrdzv.Options{Hooks: m})
	require.NoError(t, err)
	_, _, ok, err := b.SetState(ctx, []byte("s"), casrdzv.NoToken)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = st.Get(ctx, "never")
	require.ErrorIs(t, err, store.ErrTimeout)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storeRequests.WithLabelValues("compare_set", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeRequests.WithLabelValues("get", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("get")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New("rdzv")
	m.StateConflict("k")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rdzv_state_conflicts_total 1"))
}
