// Package healthcheck implements a single-loop probing scheduler the
// orchestrator multiplexes between Recovery and Idle probe policies,
// restarting it whenever the active policy changes so the two kinds of
// probe never overlap.
package healthcheck

import (
	"context"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/delay"
	"github.com/danielglennross/go-dcb/schema"
)

// DelayFunc maps an attempt number (starting at 1) to the number of
// milliseconds to sleep before that attempt's probe runs. It is consulted
// for every attempt, including the first: the first probe is intentionally
// delayed, not immediate.
type DelayFunc func(attempt int) int64

// RunCheck performs one probe of the given kind. It is expected to handle
// its own outcome reporting; the scheduler does not interpret success or
// failure. cancel is triggered if the scheduler is stopped or restarted
// mid-probe.
type RunCheck func(ctx context.Context, kind schema.ProbeKind)

// Policy parameterises one run of the scheduler.
type Policy struct {
	Kind      schema.ProbeKind
	GetDelayMs DelayFunc
}

// Scheduler runs exactly one probing loop at a time. Restart atomically
// stops the current loop, waiting for it to fully terminate, before
// starting a new one with a fresh attempt counter: probe invocations of
// two different kinds can never overlap.
type Scheduler struct {
	runCheck RunCheck
	logger   schema.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Scheduler that delegates each probe to runCheck.
func New(runCheck RunCheck, logger schema.Logger) *Scheduler {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	return &Scheduler{runCheck: runCheck, logger: logger}
}

// Start begins a new probing loop under policy. If a loop is already
// running it is stopped first.
func (s *Scheduler) Start(policy Policy) {
	s.Restart(policy)
}

// Restart atomically stops the current loop and starts a new one with
// attempt reset to 1.
func (s *Scheduler) Restart(policy Policy) {
	s.stopLocked()

	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.logger.Debug("health-check scheduler restarted", "kind", policy.Kind.String())

	go func() {
		defer close(done)
		runLoop(ctx, policy, s.runCheck)
	}()
}

// Stop terminates the current loop, if any, and waits for it to exit.
func (s *Scheduler) Stop() {
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func runLoop(ctx context.Context, policy Policy, runCheck RunCheck) {
	attempt := 1
	for {
		ms := policy.GetDelayMs(attempt)
		if !delay.Sleep(ctx, msToDuration(ms)) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		runCheck(ctx, policy.Kind)

		attempt++
	}
}

func msToDuration(ms int64) time.Duration {
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}
