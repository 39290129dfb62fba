// Package metrics provides Prometheus metrics for compiled API clients.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "routegen"

// Collector holds all Prometheus metrics of a client.
type Collector struct {
	// Call metrics
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	CallsInFlight prometheus.Gauge

	// Pipeline metrics
	ValidationFailures *prometheus.CounterVec
	EncodingWarnings   *prometheus.CounterVec

	// Schema metrics
	Endpoints          prometheus.Gauge
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter
	SchemaLastReload   prometheus.Gauge
}

// New creates a collector registered with reg.
// A nil reg uses the default Prometheus registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of endpoint calls by outcome",
			},
			[]string{"namespace", "function", "outcome"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Outbound call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"namespace", "function"},
		),
		CallsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "calls_in_flight",
				Help:      "Number of outbound calls currently in flight",
			},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Calls rejected by parameter validation",
			},
			[]string{"namespace", "function"},
		),
		EncodingWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "encoding_warnings_total",
				Help:      "Parameters dropped because they could not be encoded",
			},
			[]string{"namespace", "function"},
		),
		Endpoints: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoints",
				Help:      "Number of compiled endpoints",
			},
		),
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of failed schema reloads",
			},
		),
		SchemaLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_last_reload_timestamp",
				Help:      "Unix timestamp of the last successful schema compile",
			},
		),
	}
}

// ObserveCall records a completed call.
func (c *Collector) ObserveCall(ns, fn, outcome string, d time.Duration) {
	c.CallsTotal.WithLabelValues(ns, fn, outcome).Inc()
	c.CallDuration.WithLabelValues(ns, fn).Observe(d.Seconds())
}

// Compiled records a successful compile of n endpoints at t.
func (c *Collector) Compiled(n int, t time.Time, reload bool) {
	c.Endpoints.Set(float64(n))
	c.SchemaLastReload.Set(float64(t.Unix()))
	if reload {
		c.SchemaReloads.Inc()
	}
}
