package consensus

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "consensus"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Last committed block height.
	Height metrics.Gauge
	// Number of committed transactions.
	CommittedTxs metrics.Counter
	// Number of rejected transactions.
	RejectedTxs metrics.Counter
	// Time spent applying a block, in seconds.
	BlockProcessingTime metrics.Histogram
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Last committed block height.",
		}, []string{}),
		CommittedTxs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "committed_txs",
			Help:      "Number of committed transactions.",
		}, []string{}),
		RejectedTxs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejected_txs",
			Help:      "Number of rejected transactions.",
		}, []string{}),
		BlockProcessingTime: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_processing_time",
			Help:      "Time spent applying a block, in seconds.",
			Buckets:   stdprometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:              discard.NewGauge(),
		CommittedTxs:        discard.NewCounter(),
		RejectedTxs:         discard.NewCounter(),
		BlockProcessingTime: discard.NewHistogram(),
	}
}
