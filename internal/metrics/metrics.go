// Package metrics exposes Prometheus collectors for the site tooling.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

var (
	gatewayRequestsTotal          *prometheus.CounterVec
	gatewayRequestDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec
	buildArtifactsTotal           *prometheus.CounterVec
	buildLastSuccess              prometheus.Gauge
	rateLimitDelaySeconds         *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gatewayRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpsite_gateway_requests_total",
				Help: "Total WordPress API requests, labeled by gateway operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		gatewayRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wpsite_gateway_request_duration_seconds",
				Help:    "Histogram of WordPress API latencies, labeled by gateway operation.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		buildArtifactsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wpsite_build_artifacts_total",
				Help: "Total build artifacts written, labeled by artifact and status.",
			},
			[]string{"artifact", "status"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wpsite_gateway_ratelimit_delay_seconds",
				Help:    "Time upstream requests spent waiting on the rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"host"},
		)

		buildLastSuccess = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "wpsite_build_last_success_timestamp_seconds",
				Help: "Unix time of the last successful static build.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Gateway records WordPress API calls into the package collectors.
type Gateway struct{}

// NewGateway initializes the collectors and returns a Gateway recorder.
func NewGateway() Gateway {
	Init()
	return Gateway{}
}

// ObserveRequest counts one gateway call and its latency.
func (Gateway) ObserveRequest(operation, outcome string, duration time.Duration) {
	gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayRequestDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records a throttled upstream request.
func (Gateway) ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveArtifact counts an artifact write attempt.
func ObserveArtifact(artifact, status string) {
	buildArtifactsTotal.WithLabelValues(artifact, status).Inc()
}

// MarkBuildSuccess stamps the last successful build time.
func MarkBuildSuccess(at time.Time) {
	buildLastSuccess.Set(float64(at.Unix()))
}

// LastBuildSuccess returns the time recorded by MarkBuildSuccess, or the zero time.
func LastBuildSuccess() time.Time {
	if buildLastSuccess == nil {
		return time.Time{}
	}
	m := &dto.Metric{}
	if err := buildLastSuccess.Write(m); err != nil || m.GetGauge().GetValue() == 0 {
		return time.Time{}
	}
	return time.Unix(int64(m.GetGauge().GetValue()), 0)
}
