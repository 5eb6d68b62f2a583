package api

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DanialSobri/api-studio/internal/audit"
)

const metricsNamespace = "apistudio"

// Metrics holds the Prometheus collectors exposed on /metrics.
//
// Each Server owns its own registry so tests can build several servers in
// one process without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthEventsTotal     *prometheus.CounterVec
	LoginRateLimited    prometheus.Counter
}

// NewMetrics creates and registers the collectors. db may be nil; when set
// its connection pool statistics are exported too.
func NewMetrics(db *sql.DB, wsClients func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_events_total",
				Help:      "Security events by kind and whether they were recorded or dropped",
			},
			[]string{"event", "outcome"},
		),
		LoginRateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "login_rate_limited_total",
				Help:      "Login attempts rejected by the per-IP rate limiter",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.LoginRateLimited,
	)
	if db != nil {
		m.registry.MustRegister(collectors.NewDBStatsCollector(db, "sqlite"))
	}
	if wsClients != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "websocket_clients",
				Help:      "Connected security feed clients",
			},
			func() float64 { return float64(wsClients()) },
		))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventRecorded counts a persisted or sink-only security event.
func (m *Metrics) EventRecorded(_ context.Context, ev audit.Event) {
	m.AuthEventsTotal.WithLabelValues(string(ev.Kind), "recorded").Inc()
}

// EventDropped counts a security event whose audit write failed.
func (m *Metrics) EventDropped(_ context.Context, ev audit.Event, _ error) {
	m.AuthEventsTotal.WithLabelValues(string(ev.Kind), "dropped").Inc()
}

// metricsMiddleware records request counts and latency labelled by the
// matched chi route pattern rather than the raw path, keeping cardinality
// bounded for /api/projects/{id}.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
