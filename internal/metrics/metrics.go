// Package metrics defines the Prometheus collectors for scans, caches and
// exchange traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shannon"

// Metrics holds domain collectors registered on a single registry.
type Metrics struct {
	cacheRequests    *prometheus.CounterVec
	exchangeRequests *prometheus.CounterVec
	exchangeLatency  *prometheus.HistogramVec
	signals          *prometheus.CounterVec
	scanDuration     prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache layer and result.",
			},
			[]string{"cache", "result"},
		),
		exchangeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_requests_total",
				Help:      "Exchange REST requests by endpoint and HTTP status.",
			},
			[]string{"endpoint", "status"},
		),
		exchangeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exchange_request_duration_seconds",
				Help:      "Exchange REST request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Signals emitted by pair and action.",
			},
			[]string{"pair", "action"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of a full signal scan.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.cacheRequests, m.exchangeRequests, m.exchangeLatency, m.signals, m.scanDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CacheResult records a hit or miss for the named cache layer.
func (m *Metrics) CacheResult(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(cache, result).Inc()
}

// ExchangeRequest records one exchange round trip. Status 0 means transport failure.
func (m *Metrics) ExchangeRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exchangeRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.exchangeLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Signal records an emitted signal.
func (m *Metrics) Signal(pair, action string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(pair, action).Inc()
}

// ScanFinished records the duration of a full scan.
func (m *Metrics) ScanFinished(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(elapsed.Seconds())
}
