// Package observability provides metrics and tracing for the lineframe transport
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the transport metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: lineframe)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for send latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels

	// Registerer to register metrics with (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer
}

// TransportMetrics records wire-level transport activity
type TransportMetrics struct {
	config MetricsConfig
	server *http.Server

	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter

	sendDuration prometheus.Histogram

	// The "would block" condition of non-blocking descriptors; retried,
	// never an error
	transientRetries *prometheus.CounterVec

	errorTotal *prometheus.CounterVec

	connectionState *prometheus.GaugeVec
}

// NewTransportMetrics creates a Prometheus-backed metrics provider for the
// transport
func NewTransportMetrics(config MetricsConfig) (*TransportMetrics, error) {
	if config.Namespace == "" {
		config.Namespace = "lineframe"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		// Default buckets for milliseconds; sends block on backpressure so
		// the tail matters
		config.HistogramBuckets = []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000}
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	if config.ServiceName != "" {
		config.ConstLabels["service"] = config.ServiceName
	}

	m := &TransportMetrics{config: config}
	m.initializeMetrics()

	if err := m.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return m, nil
}

// initializeMetrics creates all metric collectors
func (m *TransportMetrics) initializeMetrics() {
	m.framesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "frames_sent_total",
		Help:        "Total number of frames written to the output descriptor",
		ConstLabels: m.config.ConstLabels,
	})

	m.framesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "frames_received_total",
		Help:        "Total number of complete frames published to the consumer",
		ConstLabels: m.config.ConstLabels,
	})

	m.bytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "bytes_sent_total",
		Help:        "Total payload bytes written, delimiters included",
		ConstLabels: m.config.ConstLabels,
	})

	m.bytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "bytes_received_total",
		Help:        "Total bytes read from the input descriptor",
		ConstLabels: m.config.ConstLabels,
	})

	m.sendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "send_duration_milliseconds",
		Help:        "Time to drive a frame fully onto the output descriptor",
		Buckets:     m.config.HistogramBuckets,
		ConstLabels: m.config.ConstLabels,
	})

	m.transientRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "transient_retries_total",
			Help:        "Would-block conditions absorbed by the poll/retry loops",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"operation"},
	)

	m.errorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "error_total",
			Help:        "Unrecoverable transport errors by operation",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"operation"},
	)

	m.connectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "connection_state",
			Help:        "Current connection state (1 for the active state, 0 otherwise)",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"state"},
	)
}

// registerMetrics registers all metrics, tolerating re-registration
func (m *TransportMetrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		m.framesSent,
		m.framesReceived,
		m.bytesSent,
		m.bytesReceived,
		m.sendDuration,
		m.transientRetries,
		m.errorTotal,
		m.connectionState,
	}

	for _, collector := range collectors {
		if err := m.config.Registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}

// RecordFrameSent records a completed send of n payload+delimiter bytes
func (m *TransportMetrics) RecordFrameSent(n int, duration time.Duration) {
	m.framesSent.Inc()
	m.bytesSent.Add(float64(n))
	m.sendDuration.Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordFrameReceived records one complete frame published to the consumer
func (m *TransportMetrics) RecordFrameReceived() {
	m.framesReceived.Inc()
}

// RecordBytesReceived records raw bytes pulled from the input descriptor
func (m *TransportMetrics) RecordBytesReceived(n int) {
	m.bytesReceived.Add(float64(n))
}

// RecordTransientRetry records an absorbed would-block condition
func (m *TransportMetrics) RecordTransientRetry(operation string) {
	m.transientRetries.WithLabelValues(operation).Inc()
}

// RecordError records an unrecoverable transport error
func (m *TransportMetrics) RecordError(operation string) {
	m.errorTotal.WithLabelValues(operation).Inc()
}

// RecordConnectionState records the current connection state
func (m *TransportMetrics) RecordConnectionState(state string) {
	m.connectionState.WithLabelValues("not_connected").Set(0)
	m.connectionState.WithLabelValues("connected").Set(0)
	m.connectionState.WithLabelValues("closed").Set(0)

	m.connectionState.WithLabelValues(state).Set(1)
}

// Start starts the metrics HTTP server
func (m *TransportMetrics) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(m.config.MetricsPath, promhttp.Handler())

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", m.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		_ = m.server.ListenAndServe()
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (m *TransportMetrics) Shutdown(ctx context.Context) error {
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}
