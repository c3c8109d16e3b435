package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordTrade(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordTrade(StatusSuccess, 200*time.Millisecond)
	c.RecordTrade(StatusSuccess, 300*time.Millisecond)
	c.RecordTrade("quote_error", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.trades.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("quote_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.tradeDuration))
}

func TestCollector_RecordRPCLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordRPCLatency("getAccountInfo", time.Millisecond, nil)
	c.RecordRPCLatency("getAccountInfo", time.Millisecond, errors.New("boom"))
	c.RecordRPCLatency("sendTransaction", time.Millisecond, nil)

	assert.Equal(t, 3, testutil.CollectAndCount(c.rpcLatency))
}

func TestCollector_SubmissionAndReserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordSubmissionAttempt("retry")
	c.RecordSubmissionAttempt("sent")
	c.UpdatePoolReserves("pool", 1_000_000, 2.27)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissionAttempts.WithLabelValues("retry")))
	assert.Equal(t, 2.27, testutil.ToFloat64(c.poolReserves.WithLabelValues("pool", "quote")))
}

func TestCollector_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTrade(StatusFailed, time.Second)
		c.RecordRPCLatency("m", time.Second, nil)
		c.RecordSubmissionAttempt("sent")
		c.UpdatePoolReserves("p", 1, 1)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.RecordTrade(StatusSuccess, time.Second)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pumpswap_bot_trades_total")
}
