// Package backoff defines the delay-function contract the health-check
// scheduler's recovery policy consults, and ships Exponential and Fixed
// policies expressed as pure functions of the attempt number rather than
// stateful counters: the scheduler threads attempt through explicitly, so
// nothing here needs to track it itself.
package backoff

import (
	"fmt"
	"math"
	"time"
)

const maxInt64 = float64(math.MaxInt64 - 512)

// Strategy maps an attempt number (starting at 1) to a delay in
// milliseconds.
type Strategy interface {
	DelayMs(attempt int) int64
}

// Exponential grows the delay geometrically from Min by Factor per
// attempt, capped at Max. Directly grounded on policies.Exponential,
// generalized to a pure function: attempt is now a method parameter
// instead of an internal counter, so the same Exponential value can be
// shared across independent probing loops.
type Exponential struct {
	Min, Max time.Duration
	Factor   float64
}

// NewExponential validates options and applies defaults (100ms min, 10s
// max, factor 2).
func NewExponential(opts Exponential) (*Exponential, error) {
	e := opts
	if e.Min == 0 {
		e.Min = 100 * time.Millisecond
	}
	if e.Max == 0 {
		e.Max = 10 * time.Second
	}
	if e.Factor == 0 {
		e.Factor = 2
	}
	if e.Min > e.Max {
		return nil, fmt.Errorf("backoff: min %s cannot be greater than max %s", e.Min, e.Max)
	}
	return &e, nil
}

// DelayMs returns the delay for attempt (1-indexed).
func (e *Exponential) DelayMs(attempt int) int64 {
	if attempt < 1 {
		attempt = 1
	}
	minf := float64(e.Min)
	durf := minf * math.Pow(e.Factor, float64(attempt-1))

	if durf > maxInt64 {
		return e.Max.Milliseconds()
	}

	dur := time.Duration(durf)
	if dur < e.Min {
		dur = e.Min
	}
	if dur > e.Max {
		dur = e.Max
	}
	return dur.Milliseconds()
}

// Fixed returns the same delay for every attempt. Directly grounded on
// policies.Fixed.
type Fixed struct {
	Delay time.Duration
}

// DelayMs returns Fixed.Delay, or 300ms if unset.
func (f *Fixed) DelayMs(int) int64 {
	if f.Delay == 0 {
		return (300 * time.Millisecond).Milliseconds()
	}
	return f.Delay.Milliseconds()
}
