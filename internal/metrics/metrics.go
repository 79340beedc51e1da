package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "quickblog"

// Metrics holds the HTTP and collaborator metrics exposed on /metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ExternalCallsTotal   *prometheus.CounterVec
	ExternalCallDuration *prometheus.HistogramVec

	OrphanCommentsRemoved prometheus.Counter

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// New registers metrics with a fresh registry that also carries the Go and process collectors.
func New(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry, logger)
}

// NewWithRegistry registers all metrics with registerer.
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		ExternalCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_calls_total",
				Help:      "Total number of calls to image hosting and text generation",
			},
			[]string{"collaborator", "operation", "result"},
		),
		ExternalCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_call_duration_seconds",
				Help:      "Duration of calls to image hosting and text generation in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"collaborator", "operation"},
		),
		OrphanCommentsRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphan_comments_removed_total",
				Help:      "Comments removed by the orphan sweep",
			},
		),
		logger: logger,
	}
	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.safeExecute("RecordHTTPRequest", func() {
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(method, endpoint, categorizeStatus(statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	})
}

// RecordExternalCall records one call to an outside collaborator.
func (m *Metrics) RecordExternalCall(collaborator, operation string, duration time.Duration, err error) {
	m.safeExecute("RecordExternalCall", func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		m.ExternalCallsTotal.WithLabelValues(collaborator, operation, result).Inc()
		m.ExternalCallDuration.WithLabelValues(collaborator, operation).Observe(duration.Seconds())
	})
}

// AddOrphansRemoved counts comments removed by a sweep.
func (m *Metrics) AddOrphansRemoved(n int64) {
	if n <= 0 {
		return
	}
	m.safeExecute("AddOrphansRemoved", func() {
		m.OrphanCommentsRemoved.Add(float64(n))
	})
}

// ShouldSkipEndpoint reports paths excluded from HTTP metrics.
func ShouldSkipEndpoint(path string) bool {
	return path == "/metrics" || path == "/ping"
}

func categorizeStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// safeExecute keeps a metrics panic from reaching the request path.
func (m *Metrics) safeExecute(operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in metrics operation",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
