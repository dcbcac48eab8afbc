// Package metrics holds the prometheus collectors of the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "factory_dashboard"

type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec

	PendingWrites prometheus.Gauge
	Writes        prometheus.Counter
	WriteFailures prometheus.Counter

	ActionLogFailures prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		PendingWrites: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "write_queue",
			Name:      "pending",
			Help:      "Debounced writes waiting to be stored.",
		}),
		Writes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "write_queue",
			Name:      "writes_total",
			Help:      "Debounced writes stored.",
		}),
		WriteFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "write_queue",
			Name:      "failures_total",
			Help:      "Debounced writes that failed and stay pending.",
		}),
		ActionLogFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action_log",
			Name:      "failures_total",
			Help:      "Action log appends that failed.",
		}),
	}
}

// RegisterSubscriptions exposes the number of live store subscriptions.
func RegisterSubscriptions(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "subscriptions",
		Help:      "Live subscriptions on the tree store.",
	}, func() float64 { return float64(count()) })
}
