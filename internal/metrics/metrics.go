package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store holds the Prometheus metrics collectors.
type Store struct {
	Registry          *prometheus.Registry // Use a custom registry
	ProviderState     prometheus.Gauge
	AuthAttemptsTotal *prometheus.CounterVec
	ReadsTotal        *prometheus.CounterVec
	ReadDuration      prometheus.Histogram
	SecretTTL         prometheus.Histogram
}

// Read outcomes used as the "status" label of ReadsTotal, next to HTTP codes.
const (
	StatusCallError = "error"
	StatusNotReady  = "not_ready"
)

// NewMetricsStore creates and registers Prometheus metrics.
func NewMetricsStore() *Store {
	registry := prometheus.NewRegistry() // Create a non-global registry

	store := &Store{
		Registry: registry,
		ProviderState: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "vaultprovider_state",
			Help: "Current provider state (0 = unconfigured, 1 = authenticating, 2 = ready, 3 = failed).",
		}),
		AuthAttemptsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultprovider_auth_attempts_total",
			Help: "Total number of authentication attempts, labeled by login method and result.",
		}, []string{"method", "result"}), // result: success, failure
		ReadsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultprovider_reads_total",
			Help: "Total number of secret reads, labeled by HTTP status or failure kind.",
		}, []string{"status"}),
		ReadDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultprovider_read_duration_seconds",
			Help:    "Duration of secret reads including backend retries.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		}),
		SecretTTL: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultprovider_secret_ttl_seconds",
			Help:    "TTL reported to the caller for successful reads.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1s to ~3 days
		}),
	}

	return store
}

// ObserveRead records one finished read.
func (s *Store) ObserveRead(status string, elapsed time.Duration) {
	s.ReadsTotal.WithLabelValues(status).Inc()
	s.ReadDuration.Observe(elapsed.Seconds())
}
