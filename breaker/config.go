package breaker

import (
	"context"
	"time"

	"github.com/danielglennross/go-dcb/backoff"
	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/metrics"
	"github.com/danielglennross/go-dcb/schema"
	"github.com/danielglennross/go-dcb/strategy"
)

// DefaultPrefix namespaces every log/mutex key this module writes:
// "<prefix>:<id>:call-result" etc.
const DefaultPrefix = "dcb"

// HealthCheckFunc is the caller-supplied probe. An error return is a failed
// probe; if ctx is already cancelled when the error is observed it is
// treated as cancellation noise and suppressed.
type HealthCheckFunc func(ctx context.Context, kind schema.ProbeKind) error

// HealthConfig groups the recognized health-check configuration options.
type HealthConfig struct {
	// Backoff computes the recovery probe's inter-attempt delay. Required.
	Backoff backoff.Strategy

	// Check is the caller-supplied probe. Required.
	Check HealthCheckFunc

	// IdleProbeIntervalMs enables idle probing when greater than zero.
	IdleProbeIntervalMs int64
}

// Config is the single constructor input: an id, a coordination store
// client, a failure-detection strategy, health-check settings, and a set of
// optional callbacks and collaborators.
type Config struct {
	// ID namespaces the three coordination-store keys this circuit uses. Required.
	ID string

	// Store is the caller-owned coordination store client. Required.
	Store coordination.Store

	// Breaker is the failure-detection strategy. Required.
	Breaker strategy.Strategy

	// Health groups the health-check configuration. Required.
	Health HealthConfig

	// Prefix overrides DefaultPrefix for the log/mutex key namespace.
	Prefix string

	// WindowSize overrides callresult.DefaultWindowSize.
	WindowSize int

	// LeaderAcquireCadence overrides the leader elector's default interval
	// between acquire attempts. Tests that need to observe a handover
	// within a tight deadline should set this low.
	LeaderAcquireCadence time.Duration

	// OnError receives every subsystem-internal error (log read/write
	// failures, elector errors, probe errors). If nil, errors are logged to
	// standard error and otherwise ignored.
	OnError func(error)

	// OnRoleChange fires on genuine elector role transitions.
	OnRoleChange func(schema.Role)

	// OnStateChange fires on genuine circuit state transitions.
	OnStateChange func(schema.CircuitState)

	// Metrics is the optional metrics sink. Defaults to metrics.Noop.
	Metrics metrics.Sink

	// Logger is the optional diagnostic sink. Defaults to schema.NopLogger,
	// except OnError's own stderr fallback below which always logs.
	Logger schema.Logger
}

func (c *Config) keys() (callResult, state, leader string) {
	prefix := c.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ":" + c.ID + ":call-result",
		prefix + ":" + c.ID + ":state",
		prefix + ":" + c.ID + ":leader"
}
