package prometheusmetrics

import (
	"github.com/prebid/consent-string/config"
	"github.com/prebid/consent-string/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the codec. Satisfies interface MetricsEngine
type Metrics struct {
	// Registry holds every collector below. The CLI gathers it once the command finishes.
	Registry *prometheus.Registry

	operations *prometheus.CounterVec
	tokenBits  *prometheus.HistogramVec
}

const (
	operationLabel = "operation"
	encodingLabel  = "encoding"
	statusLabel    = "status"
)

// NewMetrics builds the Prometheus metrics on their own registry, so several engines can live in one process.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	reg := prometheus.NewRegistry()
	labelNames := []string{operationLabel, encodingLabel, statusLabel}

	metrics := Metrics{
		Registry: reg,
	}

	metrics.operations = newCounter(cfg, reg, "operations_total",
		"Count of consent string codec operations by outcome.",
		labelNames)

	// Version 1 strings run from ~180 bits (bitfield, few vendors) past 65k bits (bitfield, max vendor id).
	bitBuckets := prometheus.ExponentialBuckets(128, 2, 10)
	metrics.tokenBits = newHistogram(cfg, reg, "token_bits",
		"Size in bits of encoded consent strings.",
		labelNames, bitBuckets)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogram(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordOperation(labels metrics.Labels) {
	m.operations.With(resolveLabels(labels)).Inc()
}

func (m *Metrics) RecordTokenBits(labels metrics.Labels, bits int) {
	m.tokenBits.With(resolveLabels(labels)).Observe(float64(bits))
}

func resolveLabels(labels metrics.Labels) prometheus.Labels {
	encoding := labels.Encoding
	if encoding == "" {
		encoding = metrics.VendorEncodingNone
	}
	return prometheus.Labels{
		operationLabel: string(labels.Operation),
		encodingLabel:  string(encoding),
		statusLabel:    string(labels.Status),
	}
}
