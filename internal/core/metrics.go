package core

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
	Path      string `yaml:"path" json:"path"`
}

// DefaultMetricsConfig returns the default configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Namespace: "citydesk", Path: "/metrics"}
}

// MetricsCollector wraps Prometheus metrics for the service, the HTTP API and
// the form manager. Each collector owns its own registry.
type MetricsCollector struct {
	config   MetricsConfig
	registry *prometheus.Registry

	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetricsCollector creates a collector with the given config.
func NewMetricsCollector(cfg MetricsConfig) *MetricsCollector {
	if cfg.Path == "" {
		cfg.Path = DefaultMetricsConfig().Path
	}
	reg := prometheus.NewRegistry()
	mc := &MetricsCollector{config: cfg, registry: reg}

	mc.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "operations_total",
		Help:      "Total number of operations by component and outcome",
	}, []string{"component", "operation", "status"})
	mc.OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Duration of operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"component", "operation"})
	mc.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status_code"})
	mc.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	reg.MustRegister(mc.Operations, mc.OperationDuration, mc.HTTPRequestsTotal, mc.HTTPRequestDuration)
	return mc
}

// Path returns the configured metrics endpoint path.
func (m *MetricsCollector) Path() string { return m.config.Path }

// Registry exposes the underlying registry for gathering in tests.
func (m *MetricsCollector) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler that serves Prometheus metrics.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation records one operation outcome for component.
func (m *MetricsCollector) RecordOperation(component, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.Operations.WithLabelValues(component, operation, status).Inc()
	m.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request metric.
func (m *MetricsCollector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ForComponent returns a MetricsRecorder that labels observations with component.
func (m *MetricsCollector) ForComponent(component string) MetricsRecorder {
	return componentRecorder{collector: m, component: component}
}

type componentRecorder struct {
	collector *MetricsCollector
	component string
}

func (r componentRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.collector.RecordOperation(r.component, operation, success, duration)
}

// MultiRecorder fans observations out to several recorders.
func MultiRecorder(recorders ...MetricsRecorder) MetricsRecorder {
	return multiRecorder(recorders)
}

type multiRecorder []MetricsRecorder

func (m multiRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		if r != nil {
			r.Observe(ctx, operation, success, duration)
		}
	}
}
