// Package metrics collects Prometheus metrics and serves them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers, middleware and the visitor registry report to.
type Recorder interface {
	RecordAuth(op, outcome string)
	RecordContact(outcome string)
	RecordProfileUpdate(outcome string)
	SetActiveVisitors(n int)
	RecordHTTPRequest(method string, status int, d time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	authAttempts   *prometheus.CounterVec
	contacts       *prometheus.CounterVec
	profileUpdates *prometheus.CounterVec
	activeVisitors prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitness_hub_auth_attempts_total",
			Help: "Login, signup and logout attempts by outcome.",
		}, []string{"op", "outcome"}),
		contacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitness_hub_contact_submissions_total",
			Help: "Contact form submissions by outcome.",
		}, []string{"outcome"}),
		profileUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitness_hub_profile_updates_total",
			Help: "Dashboard profile updates by outcome.",
		}, []string{"outcome"}),
		activeVisitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fitness_hub_active_visitors",
			Help: "Visitors with a live session controller.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitness_hub_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitness_hub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.contacts,
		c.profileUpdates,
		c.activeVisitors,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordAuth(op, outcome string) {
	c.authAttempts.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordContact(outcome string) {
	c.contacts.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordProfileUpdate(outcome string) {
	c.profileUpdates.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetActiveVisitors(n int) {
	c.activeVisitors.Set(float64(n))
}

func (c *Collector) RecordHTTPRequest(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used where metrics are not wired, e.g. tests.
type Nop struct{}

func (Nop) RecordAuth(string, string)                    {}
func (Nop) RecordContact(string)                         {}
func (Nop) RecordProfileUpdate(string)                   {}
func (Nop) SetActiveVisitors(int)                        {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
