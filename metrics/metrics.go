// Package metrics owns the Prometheus registry and the counters the API
// exports on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector registered by the API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	admissions      *prometheus.CounterVec
	calculations    *prometheus.CounterVec
	outbound        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a registry with process/Go collectors and the API counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Rate limiter decisions for write requests.",
		}, []string{"decision"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calculations_total",
			Help: "Calculator runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbound_requests_total",
			Help: "Calls to third-party services by service and outcome.",
		}, []string{"service", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.admissions,
		m.calculations,
		m.outbound,
		m.requestDuration,
	)
	return m
}

// Admission records one rate limiter decision ("admitted" or "rejected").
func (m *Metrics) Admission(admitted bool) {
	if m == nil {
		return
	}
	decision := "admitted"
	if !admitted {
		decision = "rejected"
	}
	m.admissions.WithLabelValues(decision).Inc()
}

// Calculation records one calculator run.
func (m *Metrics) Calculation(kind, outcome string) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(kind, outcome).Inc()
}

// Outbound records one call to a third-party API.
func (m *Metrics) Outbound(service, outcome string) {
	if m == nil {
		return
	}
	m.outbound.WithLabelValues(service, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware observes request latency labelled by chi route pattern so
// slugs do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
