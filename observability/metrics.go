package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	launchpadMetricsOnce sync.Once
	launchpadRegistry    *LaunchpadMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "quota_exceeded" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// LaunchpadMetrics tracks ledger operations executed against sales.
type LaunchpadMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	volume     *prometheus.CounterVec
	sold       *prometheus.GaugeVec
	lockWait   prometheus.Histogram
}

// Launchpad returns the singleton metrics registry for the sale executor.
func Launchpad() *LaunchpadMetrics {
	launchpadMetricsOnce.Do(func() {
		launchpadRegistry = &LaunchpadMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of sale operations segmented by type and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for sale operations including lock acquisition.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "ledger",
				Name:      "quote_volume_total",
				Help:      "Quote asset moved by accepted operations segmented by asset and operation.",
			}, []string{"asset", "operation"}),
			sold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "ledger",
				Name:      "sale_sold",
				Help:      "Tokens sold per sale asset after the latest committed operation.",
			}, []string{"asset"}),
			lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "ledger",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for per-record locks.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
		}
		prometheus.MustRegister(
			launchpadRegistry.operations,
			launchpadRegistry.latency,
			launchpadRegistry.volume,
			launchpadRegistry.sold,
			launchpadRegistry.lockWait,
		)
	})
	return launchpadRegistry
}

// Observe records the execution metrics for a sale operation. Errors are
// labelled with reason when provided.
func (m *LaunchpadMetrics) Observe(operation, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if reason != "" {
		outcome = reason
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordVolume adds quote volume for an accepted operation.
func (m *LaunchpadMetrics) RecordVolume(asset, operation string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.volume.WithLabelValues(normalizeLabel(asset), operation).Add(float64(amount))
}

// SetSold publishes the sold counter of a sale.
func (m *LaunchpadMetrics) SetSold(asset string, sold uint64) {
	if m == nil {
		return
	}
	m.sold.WithLabelValues(normalizeLabel(asset)).Set(float64(sold))
}

// ObserveLockWait records how long an operation waited for its locks.
func (m *LaunchpadMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	normalized := strings.TrimSpace(strings.ToUpper(v))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
