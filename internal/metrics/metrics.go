// Package metrics collects and exposes Prometheus metrics for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Collector records auth and HTTP metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	usersCreated  prometheus.Counter
	httpDuration  *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rallyauth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rallyauth_refreshes_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rallyauth_verifications_total",
			Help: "Access token verifications by outcome.",
		}, []string{"outcome"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rallyauth_users_created_total",
			Help: "Users created on first login.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rallyauth_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.verifications,
		c.usersCreated,
		c.httpDuration,
	)

	return c
}

func (c *Collector) ObserveLogin(outcome string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRefresh(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveVerify(outcome string) {
	if c == nil {
		return
	}
	c.verifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) UserCreated() {
	if c == nil {
		return
	}
	c.usersCreated.Inc()
}

func (c *Collector) ObserveHTTP(
	route string,
	method string,
	status int,
	duration time.Duration,
) {
	if c == nil {
		return
	}
	c.httpDuration.
		WithLabelValues(route, method, strconv.Itoa(status)).
		Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
