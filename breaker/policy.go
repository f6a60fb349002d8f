package breaker

import (
	"context"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/election"
	"github.com/danielglennross/go-dcb/healthcheck"
	"github.com/danielglennross/go-dcb/metrics"
	"github.com/danielglennross/go-dcb/schema"
)

func (cb *CircuitBreaker) wireElector(store coordination.Store, acquireCadence time.Duration, onError func(error), logger schema.Logger) {
	e := election.New(store, cb.onElectorRoleChange, onError, logger)
	cb.electorImpl = &electorHandle{
		start: func(ctx context.Context) error {
			return e.Start(ctx, election.Config{Key: cb.leaderKey, AcquireCadence: acquireCadence})
		},
		stop: func(ctx context.Context) error {
			return e.Stop(ctx)
		},
		isLeader: e.IsLeader,
	}
}

// onCallResultEvents is the Call-Result Store subscriber. Non-leader
// processes are passive observers and take no action here: only the leader
// makes policy decisions.
func (cb *CircuitBreaker) onCallResultEvents(events []schema.CallResultEvent) {
	if !cb.electorImpl.isLeader() {
		return
	}
	if cb.State() == schema.Blocking {
		return
	}

	lastChange := cb.stateStore.GetLastStateChangeTimestamp()
	filtered := filterSince(events, lastChange)

	if cb.strat.Evaluate(filtered) {
		cb.stateStore.SetState(context.Background(), schema.Blocking)
		cb.startRecoveryProbing()
		return
	}

	if cb.health.IdleProbeIntervalMs > 0 {
		cb.startIdleProbing()
	}
}

// onCircuitStateChange is the Circuit-State Store's callback, fired on
// every genuine transition for every process (leader and follower alike).
func (cb *CircuitBreaker) onCircuitStateChange(newState schema.CircuitState) {
	if cb.onStateChange != nil {
		cb.onStateChange(newState)
	}
}

// onElectorRoleChange reacts to this process's own role transitions.
func (cb *CircuitBreaker) onElectorRoleChange(role schema.Role) {
	if cb.onRoleChange != nil {
		cb.onRoleChange(role)
	}

	switch role {
	case schema.Leader:
		if cb.State() == schema.Blocking {
			cb.startRecoveryProbing()
		} else if cb.health.IdleProbeIntervalMs > 0 {
			cb.startIdleProbing()
		}
	case schema.Follower:
		cb.scheduler.Stop()
	}
}

func (cb *CircuitBreaker) startRecoveryProbing() {
	cb.scheduler.Restart(healthcheck.Policy{
		Kind: schema.Recovery,
		GetDelayMs: func(attempt int) int64 {
			return cb.health.Backoff.DelayMs(attempt)
		},
	})
}

func (cb *CircuitBreaker) startIdleProbing() {
	cb.scheduler.Restart(healthcheck.Policy{
		Kind:       schema.Idle,
		GetDelayMs: cb.idleDelayFunc(),
	})
}

// maybeStartIdleProbing starts idle probing only when the circuit is
// currently Passing.
func (cb *CircuitBreaker) maybeStartIdleProbing() {
	if cb.health.IdleProbeIntervalMs <= 0 {
		return
	}
	if cb.State() != schema.Passing {
		return
	}
	cb.startIdleProbing()
}

// idleDelayFunc computes the idle-probe delay: the first attempt fires
// idleIntervalMs after the newest call-result event (or immediately, if
// there has never been one); every subsequent attempt waits a flat
// idleIntervalMs.
func (cb *CircuitBreaker) idleDelayFunc() healthcheck.DelayFunc {
	interval := cb.health.IdleProbeIntervalMs
	return func(attempt int) int64 {
		if attempt > 1 {
			return interval
		}
		events := cb.callResultStore.GetEvents()
		var lastEventTimestampMs int64
		if len(events) > 0 {
			lastEventTimestampMs = events[len(events)-1].TimestampMs
		}
		delay := lastEventTimestampMs + interval - time.Now().UnixMilli()
		if delay < 0 {
			delay = 0
		}
		return delay
	}
}

// runProbe is the healthcheck.RunCheck callback. It executes on the
// scheduler's own loop goroutine, so any action that would restart or stop
// the scheduler itself is dispatched on a separate goroutine to avoid the
// loop waiting on its own completion.
func (cb *CircuitBreaker) runProbe(ctx context.Context, kind schema.ProbeKind) {
	start := time.Now()
	err := cb.health.Check(ctx, kind)
	durationMs := time.Since(start).Milliseconds()

	if err != nil && ctx.Err() != nil {
		// Cancellation noise: the scheduler was stopped or restarted mid-probe.
		return
	}

	outcome := schema.Success
	if err != nil {
		outcome = schema.Failure
		cb.onErrorUser(err)
	}
	cb.metricsSink.RecordHealthCheck(metrics.HealthCheckRecord{
		ID:         cb.id,
		Kind:       kind,
		Outcome:    outcome,
		DurationMs: durationMs,
	})

	if !cb.electorImpl.isLeader() {
		return
	}

	switch kind {
	case schema.Recovery:
		if outcome == schema.Success {
			cb.stateStore.SetState(context.Background(), schema.Passing)
			if cb.health.IdleProbeIntervalMs > 0 {
				go cb.startIdleProbing()
			} else {
				go cb.scheduler.Stop()
			}
		}
		// On failure the loop simply advances to the next attempt; no action needed.

	case schema.Idle:
		if outcome == schema.Failure {
			cb.stateStore.SetState(context.Background(), schema.Blocking)
			go cb.startRecoveryProbing()
		}
		// On success the idle loop simply continues.
	}
}

// filterSince returns the suffix of events whose TimestampMs is >= since,
// preventing pre-recovery failures from immediately reopening a freshly
// recovered circuit.
func filterSince(events []schema.CallResultEvent, since int64) []schema.CallResultEvent {
	out := make([]schema.CallResultEvent, 0, len(events))
	for _, e := range events {
		if e.TimestampMs >= since {
			out = append(out, e)
		}
	}
	return out
}
