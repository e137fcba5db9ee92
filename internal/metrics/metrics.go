package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder es lo que la capa de servicios y el router reportan.
type Recorder interface {
	RecordSessionResolved(profileCreated bool)
	RecordSessionResolveFailure()
	RecordSessionEnded()
	RecordAuthFailure(operation string)
	RecordProfileMutation(operation string, ok bool)
	RecordHTTPRequest(method, route string, status int, latency time.Duration)
}

// Collector implementa Recorder con metricas de Prometheus.
type Collector struct {
	sessionsResolved *prometheus.CounterVec
	resolveFailures  prometheus.Counter
	sessionsEnded    prometheus.Counter
	activeSessions   prometheus.Gauge
	authFailures     *prometheus.CounterVec
	profileMutations *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "session",
			Name:      "resolved_total",
			Help:      "Sessions published after profile resolution, by whether the profile was created.",
		}, []string{"profile_created"}),
		resolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "session",
			Name:      "resolve_failures_total",
			Help:      "Identity events whose profile could not be read or created.",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Sessions cleared by a sign-out event.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notes_console",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently published by this process.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected credential operations by operation.",
		}, []string{"operation"}),
		profileMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "profile",
			Name:      "mutations_total",
			Help:      "Profile writes by operation and result.",
		}, []string{"operation", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes_console",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notes_console",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.sessionsResolved,
		c.resolveFailures,
		c.sessionsEnded,
		c.activeSessions,
		c.authFailures,
		c.profileMutations,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordSessionResolved(profileCreated bool) {
	c.sessionsResolved.WithLabelValues(strconv.FormatBool(profileCreated)).Inc()
	c.activeSessions.Inc()
}

func (c *Collector) RecordSessionResolveFailure() {
	c.resolveFailures.Inc()
}

func (c *Collector) RecordSessionEnded() {
	c.sessionsEnded.Inc()
	c.activeSessions.Dec()
}

func (c *Collector) RecordAuthFailure(operation string) {
	c.authFailures.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordProfileMutation(operation string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.profileMutations.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// Handler devuelve el handler de scrape para /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop descarta todo; se usa en tests y cuando no hay registry.
type Nop struct{}

func (Nop) RecordSessionResolved(bool) {}

func (Nop) RecordSessionResolveFailure() {}

func (Nop) RecordSessionEnded() {}

func (Nop) RecordAuthFailure(string) {}

func (Nop) RecordProfileMutation(string, bool) {}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
