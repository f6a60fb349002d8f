package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a reference Sink registering one counter for calls, blocked
// requests and health checks, plus a histogram of call/probe duration,
// labeled by id/outcome/kind. Grounded on the counting and percentile
// vocabulary of Angelos-Zaimis-go-loadbalancer's internal/metrics package
// (Metrics, Snapshot, percentile helpers), generalized from HTTP backend
// metrics to circuit metrics and re-expressed on Prometheus collectors,
// since the Sink contract is push-style rather than an in-memory pull
// snapshot.
type Prometheus struct {
	calls         *prometheus.CounterVec
	blocked       *prometheus.CounterVec
	healthChecks  *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	probeDuration *prometheus.HistogramVec
}

// NewPrometheus registers its collectors with reg (typically
// prometheus.DefaultRegisterer).
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcb",
			Name:      "calls_total",
			Help:      "Guarded calls executed, labeled by circuit id and outcome.",
		}, []string{"id", "outcome"}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcb",
			Name:      "blocked_requests_total",
			Help:      "Calls short-circuited while the circuit was blocking.",
		}, []string{"id"}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcb",
			Name:      "health_checks_total",
			Help:      "Health probes run, labeled by circuit id, probe kind, and outcome.",
		}, []string{"id", "kind", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dcb",
			Name:      "call_duration_ms",
			Help:      "Guarded call duration in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"id", "outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dcb",
			Name:      "probe_duration_ms",
			Help:      "Health probe duration in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"id", "kind"}),
	}

	reg.MustRegister(p.calls, p.blocked, p.healthChecks, p.callDuration, p.probeDuration)
	return p
}

// Initialize is a no-op: Prometheus collectors are registered once at
// construction, not per circuit id.
func (p *Prometheus) Initialize(string) {}

func (p *Prometheus) RecordCall(rec CallRecord) {
	p.calls.WithLabelValues(rec.ID, rec.Outcome.String()).Inc()
	p.callDuration.WithLabelValues(rec.ID, rec.Outcome.String()).Observe(float64(rec.DurationMs))
}

func (p *Prometheus) RecordBlockedRequest(rec BlockedRecord) {
	p.blocked.WithLabelValues(rec.ID).Inc()
}

func (p *Prometheus) RecordHealthCheck(rec HealthCheckRecord) {
	p.healthChecks.WithLabelValues(rec.ID, rec.Kind.String(), rec.Outcome.String()).Inc()
	p.probeDuration.WithLabelValues(rec.ID, rec.Kind.String()).Observe(float64(rec.DurationMs))
}
