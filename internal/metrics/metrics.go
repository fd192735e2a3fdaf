// Package metrics exposes Prometheus counters and histograms for the triage
// API. Each Collector owns its registry so tests and multiple servers in one
// process never collide on registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediscan-triage-server/internal/domain"
)

const namespace = "mediscan"

// Image outcome label values.
const (
	ImageAccepted = "accepted"
	ImageRejected = "rejected"
	ImageAbsent   = "absent"
)

// Collector groups the service metrics.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	DiagnosesTotal  *prometheus.CounterVec
	ImagesTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RateLimited     prometheus.Counter
}

// NewCollector creates a Collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		DiagnosesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnoses_total",
				Help:      "Total number of completed triage classifications",
			},
			[]string{"diagnosis", "risk_level"},
		),

		ImagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_total",
				Help:      "Image uploads by validation outcome",
			},
			[]string{"outcome"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Error responses by error code",
			},
			[]string{"code"},
		),

		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-client rate limiter",
			},
		),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveDiagnosis records a successful triage.
func (c *Collector) ObserveDiagnosis(resp *domain.DiagnosisResponse) {
	c.DiagnosesTotal.WithLabelValues(resp.Diagnosis.String(), resp.RiskLevel.String()).Inc()
	if resp.ImageProcessed {
		c.ImagesTotal.WithLabelValues(ImageAccepted).Inc()
	} else {
		c.ImagesTotal.WithLabelValues(ImageAbsent).Inc()
	}
}

// ObserveError records an error response. Image related client errors also
// count as rejected images.
func (c *Collector) ObserveError(code string) {
	c.ErrorsTotal.WithLabelValues(code).Inc()
	switch domain.ErrorKind(code) {
	case domain.ErrCodeInvalidContentType, domain.ErrCodeInvalidImage:
		c.ImagesTotal.WithLabelValues(ImageRejected).Inc()
	}
}

// ObserveRateLimited records a request rejected by the rate limiter.
func (c *Collector) ObserveRateLimited() {
	c.RateLimited.Inc()
}
