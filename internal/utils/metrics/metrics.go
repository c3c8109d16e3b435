// internal/utils/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trade statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RecordTrade записывает результат и длительность покупки.
func (c *Collector) RecordTrade(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(status).Inc()
	c.tradeDuration.Observe(duration.Seconds())
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	c.rpcLatency.WithLabelValues(method, status).Observe(duration.Seconds())
}

// RecordSubmissionAttempt counts one send attempt: "sent", "retry" or "failed".
func (c *Collector) RecordSubmissionAttempt(outcome string) {
	if c == nil {
		return
	}
	c.submissionAttempts.WithLabelValues(outcome).Inc()
}

// UpdatePoolReserves обновляет метрики резервов пула
func (c *Collector) UpdatePoolReserves(pool string, base, quote float64) {
	if c == nil {
		return
	}
	c.poolReserves.WithLabelValues(pool, "base").Set(base)
	c.poolReserves.WithLabelValues(pool, "quote").Set(quote)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
