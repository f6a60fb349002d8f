// Package breaker implements the orchestrator: it wires the call-result
// store, circuit-state store, leader elector and health-check scheduler
// together, makes the leader-only policy decisions that drive circuit-state
// transitions, and exposes the public Execute entry point.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/healthcheck"
	"github.com/danielglennross/go-dcb/lifecycle"
	"github.com/danielglennross/go-dcb/metrics"
	"github.com/danielglennross/go-dcb/schema"
	"github.com/danielglennross/go-dcb/store/callresult"
	"github.com/danielglennross/go-dcb/store/state"
	"github.com/danielglennross/go-dcb/strategy"
)

// stderrLogger is the fallback onError behaviour: if the caller did not
// supply one, the library logs to standard error and continues.
func stderrLogger(id string) func(error) {
	return func(err error) {
		fmt.Fprintf(os.Stderr, "dcb[%s]: %v\n", id, err)
	}
}

// CircuitBreaker is the Orchestrator. Construct with New, then Start,
// Execute, and eventually Stop.
type CircuitBreaker struct {
	id     string
	store  coordination.Store
	strat  strategy.Strategy
	health HealthConfig

	onErrorUser   func(error)
	onRoleChange  func(schema.Role)
	onStateChange func(schema.CircuitState)
	metricsSink   metrics.Sink
	logger        schema.Logger

	callResultKey string
	stateKey      string
	leaderKey     string
	windowSize    int

	callResultStore *callresult.Store
	stateStore      *state.Store

	scheduler *healthcheck.Scheduler
	lifecycle *lifecycle.Manager

	electorImpl *electorHandle
}

// electorHandle adapts the concrete *election.Elector built in wireElector
// to the small surface breaker.go needs, so this file does not need to
// spell out package election's Config type inline.
type electorHandle struct {
	start    func(ctx context.Context) error
	stop     func(ctx context.Context) error
	isLeader func() bool
}

var startMarker = struct{}{}

// New validates cfg and wires the four subsystems. It does not start
// anything; call Start to begin operation.
func New(cfg Config) (*CircuitBreaker, error) {
	if cfg.ID == "" {
		return nil, errors.New("dcb: Config.ID is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("dcb: Config.Store is required")
	}
	if cfg.Breaker == nil {
		return nil, errors.New("dcb: Config.Breaker is required")
	}
	if cfg.Health.Backoff == nil {
		return nil, errors.New("dcb: Config.Health.Backoff is required")
	}
	if cfg.Health.Check == nil {
		return nil, errors.New("dcb: Config.Health.Check is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = schema.NopLogger{}
	}
	metricsSink := cfg.Metrics
	if metricsSink == nil {
		metricsSink = metrics.Noop{}
	}
	onError := cfg.OnError
	if onError == nil {
		onError = stderrLogger(cfg.ID)
	}

	callResultKey, stateKey, leaderKey := cfg.keys()
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = callresult.DefaultWindowSize
	}

	metricsSink.Initialize(cfg.ID)

	cb := &CircuitBreaker{
		id:            cfg.ID,
		store:         cfg.Store,
		strat:         cfg.Breaker,
		health:        cfg.Health,
		onErrorUser:   onError,
		onRoleChange:  cfg.OnRoleChange,
		onStateChange: cfg.OnStateChange,
		metricsSink:   metricsSink,
		logger:        logger,
		callResultKey: callResultKey,
		stateKey:      stateKey,
		leaderKey:     leaderKey,
		windowSize:    windowSize,
	}

	cb.callResultStore = callresult.New(cfg.Store, cb.onCallResultEvents, onError, logger)
	cb.stateStore = state.New(cfg.Store, cb.onCircuitStateChange, onError, logger)
	cb.scheduler = healthcheck.New(cb.runProbe, logger)
	cb.wireElector(cfg.Store, cfg.LeaderAcquireCadence, onError, logger)

	cb.lifecycle = lifecycle.New(cb.startInternal, cb.stopInternal, logger)
	return cb, nil
}

// Start starts both stores, then the leader elector. Idempotent: calling it
// again with the same config while already running is a no-op.
func (cb *CircuitBreaker) Start(ctx context.Context) error {
	return cb.lifecycle.Start(ctx, startMarker)
}

// Stop concurrently stops all four subsystems.
func (cb *CircuitBreaker) Stop(ctx context.Context) error {
	return cb.lifecycle.Stop(ctx)
}

// State returns the state store's cached current state.
func (cb *CircuitBreaker) State() schema.CircuitState {
	return cb.stateStore.GetState()
}

// Role returns Leader if the elector reports leadership, else Follower.
func (cb *CircuitBreaker) Role() schema.Role {
	if cb.electorImpl.isLeader() {
		return schema.Leader
	}
	return schema.Follower
}

// Execute runs fn if the circuit is Passing, short-circuiting with
// *schema.CircuitOpenError if it is Blocking. fn's outcome is always
// recorded (metric + fire-and-forget call-result append) and its result or
// error propagated unchanged; Execute never wraps or suppresses fn's own
// error. The result is returned as interface{} rather than through a
// generic method, since Go does not permit type parameters on methods.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	if cb.State() == schema.Blocking {
		cb.metricsSink.RecordBlockedRequest(metrics.BlockedRecord{ID: cb.id})
		return nil, &schema.CircuitOpenError{CircuitID: cb.id}
	}

	start := time.Now()
	result, err := fn()
	durationMs := time.Since(start).Milliseconds()

	outcome := schema.Success
	if err != nil {
		outcome = schema.Failure
	}
	cb.metricsSink.RecordCall(metrics.CallRecord{ID: cb.id, Outcome: outcome, DurationMs: durationMs})

	go cb.callResultStore.StoreCallResult(context.Background(), outcome)

	return result, err
}

func (cb *CircuitBreaker) startInternal(ctx context.Context, _ any) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = cb.callResultStore.Start(ctx, callresult.Config{Key: cb.callResultKey, WindowSize: cb.windowSize})
	}()
	go func() {
		defer wg.Done()
		errs[1] = cb.stateStore.Start(ctx, state.Config{Key: cb.stateKey})
	}()
	wg.Wait()

	if errs[0] != nil {
		return errs[0]
	}
	if errs[1] != nil {
		return errs[1]
	}

	return cb.electorImpl.start(ctx)
}

func (cb *CircuitBreaker) stopInternal(ctx context.Context) error {
	cb.scheduler.Stop()

	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = cb.callResultStore.Stop(ctx)
	}()
	go func() {
		defer wg.Done()
		errs[1] = cb.stateStore.Stop(ctx)
	}()
	go func() {
		defer wg.Done()
		errs[2] = cb.electorImpl.stop(ctx)
	}()
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Isolate manually forces the circuit Blocking and starts recovery probing,
// bypassing the failure-detection strategy. An operator escape hatch (see
// DESIGN.md). Only effective on the leader; followers observe the
// transition via the state log like any other state change.
func (cb *CircuitBreaker) Isolate(ctx context.Context) {
	if !cb.electorImpl.isLeader() {
		return
	}
	cb.stateStore.SetState(ctx, schema.Blocking)
	cb.startRecoveryProbing()
}

// Reset manually forces the circuit back to Passing, bypassing a successful
// recovery probe. Only effective on the leader.
func (cb *CircuitBreaker) Reset(ctx context.Context) {
	if !cb.electorImpl.isLeader() {
		return
	}
	cb.stateStore.SetState(ctx, schema.Passing)
	cb.scheduler.Stop()
	cb.maybeStartIdleProbing()
}
