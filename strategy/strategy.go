// Package strategy defines the pluggable failure-detection strategy
// contract and ships three reference implementations so the orchestrator
// is usable out of the box, grounded on the counting/windowing vocabulary
// of 1mb-dev-autobreaker's ReadyToTrip(Counts) and
// sorat-ges-circuitbreaker's FailureThreshold. The orchestrator itself
// depends only on the Strategy interface; none of these concrete types are
// imported by package breaker.
package strategy

import (
	"time"

	"github.com/danielglennross/go-dcb/schema"
)

// Strategy is a pure function from a window of recent call outcomes,
// already filtered to events at or after the last state-change timestamp
// so historical failures can't immediately reopen a freshly recovered
// circuit, to a boolean decision to open the circuit.
type Strategy interface {
	Evaluate(events []schema.CallResultEvent) bool
}

// consecutiveFailures opens once the trailing threshold events are all
// Failure with no intervening Success.
type consecutiveFailures struct {
	threshold int
}

// ConsecutiveFailures opens the circuit once threshold consecutive
// failures are observed at the tail of the window.
func ConsecutiveFailures(threshold int) Strategy {
	return &consecutiveFailures{threshold: threshold}
}

func (c *consecutiveFailures) Evaluate(events []schema.CallResultEvent) bool {
	if c.threshold <= 0 || len(events) < c.threshold {
		return false
	}
	run := 0
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Outcome != schema.Failure {
			break
		}
		run++
		if run >= c.threshold {
			return true
		}
	}
	return false
}

// countWindow opens once the window contains threshold or more failures,
// regardless of interleaving with successes.
type countWindow struct {
	threshold int
}

// CountWindow opens the circuit once threshold failures appear anywhere in
// the window.
func CountWindow(threshold int) Strategy {
	return &countWindow{threshold: threshold}
}

func (c *countWindow) Evaluate(events []schema.CallResultEvent) bool {
	if c.threshold <= 0 {
		return false
	}
	failures := 0
	for _, e := range events {
		if e.Outcome == schema.Failure {
			failures++
			if failures >= c.threshold {
				return true
			}
		}
	}
	return false
}

// timeWindow is like countWindow but only counts failures within window of
// the newest event in the slice.
type timeWindow struct {
	window    time.Duration
	threshold int
}

// TimeWindow opens the circuit once threshold failures occur within window
// of the newest event in the (already-filtered) slice.
func TimeWindow(window time.Duration, threshold int) Strategy {
	return &timeWindow{window: window, threshold: threshold}
}

func (t *timeWindow) Evaluate(events []schema.CallResultEvent) bool {
	if t.threshold <= 0 || len(events) == 0 {
		return false
	}
	newest := events[len(events)-1].TimestampMs
	cutoff := newest - t.window.Milliseconds()

	failures := 0
	for _, e := range events {
		if e.TimestampMs < cutoff {
			continue
		}
		if e.Outcome == schema.Failure {
			failures++
			if failures >= t.threshold {
				return true
			}
		}
	}
	return false
}
