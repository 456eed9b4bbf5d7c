// Package metrics holds the Prometheus collectors for the social login flow.
// Collectors are always constructed so callers can record unconditionally;
// they only show up on /metrics after Register.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_provider_requests_total",
		Help: "Outbound calls to identity providers by provider, operation and outcome",
	}, []string{"provider", "op", "outcome"})

	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oauth_provider_request_duration_seconds",
		Help:    "Latency of outbound identity provider calls",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"provider", "op"})

	StateTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_state_tokens_total",
		Help: "State tokens by result (issued, consumed, rejected)",
	}, []string{"result"})

	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_login_attempts_total",
		Help: "Finished social login attempts by provider, outcome and the phase they ended in",
	}, []string{"provider", "outcome", "phase"})

	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_refreshes_total",
		Help: "Token refreshes by provider and outcome; shared counts callers that joined an in-flight refresh",
	}, []string{"provider", "outcome"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"route"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ProviderRequests, ProviderLatency, StateTokens, LoginAttempts,
		Refreshes, RateLimited, HTTPRequests, HTTPDuration,
	}
}

// Register adds every collector to reg (the default registerer when nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProviderCall records one outbound provider call.
// outcome is "ok", "http_<status>" or "error".
func ObserveProviderCall(provider, op string, status int, err error, took time.Duration) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case status < 200 || status > 299:
		outcome = "http_" + strconv.Itoa(status)
	}
	ProviderRequests.WithLabelValues(provider, op, outcome).Inc()
	ProviderLatency.WithLabelValues(provider, op).Observe(took.Seconds())
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
