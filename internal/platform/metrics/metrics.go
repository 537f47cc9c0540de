// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors exported on /metrics.

Collectors are registered on an explicit [prometheus.Registry] created in
cmd/api, so tests can build an isolated set without touching global state.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// unmatchedRoute labels requests that never reached a chi route.
const unmatchedRoute = "unmatched"

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// AuthAttemptsTotal counts every request-boundary resolution.
	AuthAttemptsTotal *prometheus.CounterVec

	// CredentialEventsTotal counts register/login/refresh/rotate style events.
	CredentialEventsTotal *prometheus.CounterVec
}

// New creates and registers all collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keygate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_auth_attempts_total",
				Help: "Authentication attempts at the request boundary",
			},
			[]string{"method", "outcome", "code"},
		),
		CredentialEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_credential_events_total",
				Help: "Credential lifecycle events by outcome",
			},
			[]string{"event", "outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthAttemptsTotal,
		m.CredentialEventsTotal,
	)

	return m
}

// ObserveAuth records one boundary resolution. code is empty on success.
func (m *Metrics) ObserveAuth(method, outcome, code string) {
	m.AuthAttemptsTotal.WithLabelValues(method, outcome, code).Inc()
}

// ObserveCredentialEvent records a credential lifecycle event.
func (m *Metrics) ObserveCredentialEvent(event, outcome string) {
	m.CredentialEventsTotal.WithLabelValues(event, outcome).Inc()
}

// # HTTP Instrumentation

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware instruments requests. Routes are labelled with the chi pattern
// rather than the raw path so ids in URLs do not explode cardinality.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrapped, request)

			route := unmatchedRoute
			if rctx := chi.RouteContext(request.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			m.HTTPRequestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(wrapped.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
