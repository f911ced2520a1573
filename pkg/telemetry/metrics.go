// Package telemetry wires leadgrid's process-wide observability: zerolog
// structured logging and prometheus metrics exposed on the worker's
// /metrics endpoint. It replaces the hand-rolled MetricsCollector the
// scraper this module started from used to keep in pkg/monitoring.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leadgrid/leadgrid/pkg/resilience"
)

// Metrics is the set of prometheus collectors every component reaches for.
// A single instance is constructed at process start and passed to the
// browser pool, which updates the pool state, pages-in-use and reconnect
// collectors; the other collectors are registered but not updated by any
// component.
type Metrics struct {
	JobsTotal           *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	RecordsCollected    *prometheus.CounterVec
	BrowserPoolState    prometheus.Gauge
	BrowserPagesInUse   prometheus.Gauge
	BrowserReconnects   prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
	EmailsVerified      *prometheus.CounterVec
	SMTPCalloutDuration prometheus.Histogram
	QueueDepth          prometheus.Gauge
	ActiveWorkers       prometheus.Gauge
}

// NewMetrics registers every collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across package-level test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgrid",
			Name:      "jobs_total",
			Help:      "Total number of scrape jobs by terminal status.",
		}, []string{"status"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadgrid",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of a scrape job from active to terminal.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 12), // 5s .. ~3h
		}, []string{"status"}),

		RecordsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgrid",
			Name:      "records_collected_total",
			Help:      "Total business records written to a job's output, by population bucket.",
		}, []string{"bucket"}),

		BrowserPoolState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadgrid",
			Name:      "browser_pool_state",
			Help:      "Browser pool health state: 0=disconnected 1=connecting 2=connected 3=degraded.",
		}),

		BrowserPagesInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadgrid",
			Name:      "browser_pages_in_use",
			Help:      "Number of browser pages currently checked out of the pool.",
		}),

		BrowserReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "leadgrid",
			Name:      "browser_reconnects_total",
			Help:      "Total browser pool reconnect attempts.",
		}),

		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leadgrid",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state by name: 0=closed 0.5=half_open 1=open.",
		}, []string{"name"}),

		EmailsVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgrid",
			Name:      "emails_verified_total",
			Help:      "Total email verification attempts by outcome.",
		}, []string{"outcome"}),

		SMTPCalloutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadgrid",
			Name:      "smtp_callout_duration_seconds",
			Help:      "Duration of a single SMTP RCPT-TO callout.",
			Buckets:   prometheus.DefBuckets,
		}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadgrid",
			Name:      "queue_depth",
			Help:      "Number of jobs currently waiting in the queue.",
		}),

		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadgrid",
			Name:      "active_workers",
			Help:      "Number of worker goroutines currently processing a job.",
		}),
	}
}

// BrowserPoolStateValue maps the browserpool health states onto the gauge
// values documented in BrowserPoolState's Help text.
func BrowserPoolStateValue(disconnected, connecting, connected, degraded bool) float64 {
	switch {
	case degraded:
		return 3
	case connected:
		return 2
	case connecting:
		return 1
	default:
		return 0
	}
}

// CircuitStateValue maps resilience.CircuitBreakerState onto the gauge
// value convention used across this package.
func CircuitStateValue(state resilience.CircuitBreakerState) float64 {
	switch state {
	case resilience.StateOpen:
		return 1
	case resilience.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}
