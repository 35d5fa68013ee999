// Package middleware provides the Prometheus implementation of
// ports.MetricsCollector used by the report engine and the LLM client.
package middleware

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/galley/internal/ports"
)

const namespace = "galley"

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics routes the metric names emitted by the application and
// the LLM middleware to typed Prometheus vectors. Unknown names land in
// generic fallback vectors labelled by name. Each instance owns its
// registry, so tests and batch runs never collide on registration.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	verdicts         *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	reportDuration   *prometheus.HistogramVec
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	circuitState     *prometheus.GaugeVec

	operationLatency *prometheus.HistogramVec
	events           *prometheus.CounterVec
	gauges           *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collector and registers its vectors on a
// fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Checklist verdicts by criterion and status.",
		}, []string{"criterion", "status"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Metric provider extraction time.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "status"}),
		reportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time to build one report.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"memoize"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM requests by provider, model and outcome.",
		}, []string{"provider", "model", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed, split into input and output.",
		}, []string{"provider", "model", "token_type"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency.",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider", "model", "status"}),
		circuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"provider"}),
		operationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of operations without a dedicated histogram.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Counters without a dedicated metric.",
		}, []string{"metric"}),
		gauges: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gauge",
			Help:      "Gauges without a dedicated metric.",
		}, []string{"metric"}),
	}
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// WriteTextfile writes every metric to path in the text exposition format
// read by the node exporter textfile collector. The write is atomic.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	seconds := duration.Seconds()
	switch operation {
	case "provider_extract":
		pm.providerDuration.WithLabelValues(label(labels, "provider"), label(labels, "status")).Observe(seconds)
	case "report_pass":
		pm.reportDuration.WithLabelValues(label(labels, "memoize")).Observe(seconds)
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(seconds)
	}
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	if value < 0 {
		return
	}
	switch metric {
	case "verdicts_total":
		pm.verdicts.WithLabelValues(label(labels, "criterion"), label(labels, "status")).Add(value)
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_circuit_state":
		pm.circuitState.WithLabelValues(label(labels, "provider")).Set(value)
	default:
		pm.gauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_latency_seconds":
		pm.llmLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric).Observe(value)
	}
}

// label returns labels[key], or "unknown" when absent or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}
