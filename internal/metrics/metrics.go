// Package metrics exposes Prometheus counters for repository operations, storage failures,
// summaries and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice_canvas"

// Outcome labels for repository operations.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Registry owns the collectors of one process. A nil *Registry is valid and records nothing.
type Registry struct {
	registry        *prometheus.Registry
	operations      *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	summaries       prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRegistry builds a registry with process and Go runtime collectors attached.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()
	r := &Registry{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_operations_total",
			Help:      "Total number of note repository operations",
		}, []string{"operation", "outcome"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_write_failures_total",
			Help:      "Total number of failed writes to the persistent store",
		}, []string{"key"}),
		summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_summaries_created_total",
			Help:      "Total number of weekly summary notes generated",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.operations,
		r.storageFailures,
		r.summaries,
		r.requests,
		r.requestDuration,
	)
	return r
}

// ObserveOperation counts one repository operation with its outcome.
func (r *Registry) ObserveOperation(operation string, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
}

// StorageWriteFailed counts a failed write to key.
func (r *Registry) StorageWriteFailed(key string) {
	if r == nil {
		return
	}
	r.storageFailures.WithLabelValues(key).Inc()
}

// SummaryCreated counts a generated weekly summary.
func (r *Registry) SummaryCreated() {
	if r == nil {
		return
	}
	r.summaries.Inc()
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies per matched route.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		r.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
