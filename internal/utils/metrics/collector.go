// internal/utils/metrics/collector.go
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pumpswap_bot"

// Collector владеет метриками бота и регистрирует их в переданном реестре.
// Все методы безопасны для вызова на nil-коллекторе.
type Collector struct {
	trades             *prometheus.CounterVec
	tradeDuration      prometheus.Histogram
	rpcLatency         *prometheus.HistogramVec
	submissionAttempts *prometheus.CounterVec
	poolReserves       *prometheus.GaugeVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of buy attempts by outcome",
			},
			[]string{"status"},
		),
		tradeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_duration_seconds",
				Help:      "Duration of a full buy from pool fetch to confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "status"},
		),
		submissionAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submission_attempts_total",
				Help:      "Transaction send attempts by outcome",
			},
			[]string{"outcome"},
		),
		poolReserves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_reserves",
				Help:      "Last observed pool reserves in UI units",
			},
			[]string{"pool", "side"},
		),
	}

	for _, m := range []prometheus.Collector{c.trades, c.tradeDuration, c.rpcLatency, c.submissionAttempts, c.poolReserves} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}
