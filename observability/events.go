package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics counts committed events by module and type.
type EventMetrics struct {
	emitted *prometheus.CounterVec
	last    *prometheus.GaugeVec
}

var (
	eventsOnce sync.Once
	eventsReg  *EventMetrics
)

// Events returns the process-wide event metrics.
func Events() *EventMetrics {
	eventsOnce.Do(func() {
		eventsReg = &EventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Committed events by emitting module and event type.",
			}, []string{"module", "type"}),
			last: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "events",
				Name:      "last_emitted_timestamp_seconds",
				Help:      "Unix time of the most recent event per module.",
			}, []string{"module"}),
		}
		prometheus.MustRegister(eventsReg.emitted, eventsReg.last)
	})
	return eventsReg
}

// RecordEvent counts one event. The module label is the first dotted
// segment of the type, so "launchpad.sale.bid" lands under "launchpad".
func (m *EventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.ToLower(strings.TrimSpace(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	module, _, found := strings.Cut(normalized, ".")
	if !found {
		module = "core"
	}
	m.emitted.WithLabelValues(module, normalized).Inc()
	m.last.WithLabelValues(module).Set(float64(time.Now().Unix()))
}
