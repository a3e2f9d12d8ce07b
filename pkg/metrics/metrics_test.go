package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTransfer(t *testing.T) {
	m := New()

	m.ObserveTransfer("sepolia", "complete", 2*time.Second)
	m.ObserveTransfer("sepolia", "complete", time.Second)
	m.ObserveTransfer("sepolia", "error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransferCount("sepolia", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferCount("sepolia", "error")))
}

func TestObserveBalanceFetch(t *testing.T) {
	m := New()

	m.ObserveBalanceFetch("sepolia", nil)
	m.ObserveBalanceFetch("sepolia", errors.New("dial tcp: connection refused"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceFetchCount("sepolia", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceFetchCount("sepolia", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveTransfer("sepolia", "complete", time.Second)
		m.ObserveBalanceFetch("sepolia", nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveBalanceFetch("sepolia", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "evm_wallet_balance_fetches_total"))

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
