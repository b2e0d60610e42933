// Package metrics defines the Prometheus metrics exported by the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uniqiita"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// LoginsTotal counts login attempts.
	// Label outcome: success, unavailable, missing, malformed, invalid, timeout, no_email, error.
	LoginsTotal *prometheus.CounterVec
	// SessionResolutionsTotal counts session cookie lookups.
	// Label outcome: user, development, absent, unrecognized, error.
	SessionResolutionsTotal *prometheus.CounterVec
	// CredentialsReady is 1 when the identity provider client is initialized.
	CredentialsReady prometheus.Gauge
	// HTTPRequestsTotal counts requests by route pattern, method and status.
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration measures request latency by route pattern and method.
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Total number of ID token login attempts, by outcome.",
		}, []string{"outcome"}),
		SessionResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_session_resolutions_total",
			Help:      "Total number of session credential resolutions, by outcome.",
		}, []string{"outcome"}),
		CredentialsReady: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identity_provider_ready",
			Help:      "1 when the identity provider client is initialized, 0 otherwise.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests, by route, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLogin implements auth.Observer.
func (m *Metrics) ObserveLogin(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSession implements auth.Observer.
func (m *Metrics) ObserveSession(outcome string) {
	m.SessionResolutionsTotal.WithLabelValues(outcome).Inc()
}

// SetCredentialsReady records identity provider readiness.
func (m *Metrics) SetCredentialsReady(ready bool) {
	if ready {
		m.CredentialsReady.Set(1)
		return
	}
	m.CredentialsReady.Set(0)
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
