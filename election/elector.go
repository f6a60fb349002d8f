// Package election implements the leader elector: a background acquire
// loop over a distributed mutex, exposing the locally observed Role and
// notifying subscribers only on genuine transitions.
package election

import (
	"context"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/lifecycle"
	"github.com/danielglennross/go-dcb/schema"
)

// defaultAcquireCadence is the interval between tryAcquire attempts used
// when Config.AcquireCadence is zero. It bounds failover latency from
// below by one cadence: a new leader cannot be elected faster than this
// loop wakes up.
const defaultAcquireCadence = 5 * time.Second

// lockTTL is the mutex's auto-expiry while held; the Store renews it
// internally and reports lock-lost if renewal ever fails.
const lockTTL = 15 * time.Second

// OnRoleChange fires only on genuine role transitions; it is never called
// twice in a row with the same role.
type OnRoleChange func(role schema.Role)

// Config is the structurally-comparable configuration the lifecycle Manager
// starts this elector with.
type Config struct {
	Key string

	// AcquireCadence overrides defaultAcquireCadence. Tests that need to
	// observe a handover within a tight deadline should set this low.
	AcquireCadence time.Duration
}

// Elector is the Leader Elector.
type Elector struct {
	store    coordination.Store
	onChange OnRoleChange
	onError  func(error)
	logger   schema.Logger

	lifecycle *lifecycle.Manager

	mu   sync.RWMutex
	role schema.Role

	cancelLoop context.CancelFunc
	loopDone   chan struct{}

	cfgMu sync.RWMutex
	cfg   Config
}

// New builds a Leader Elector. onChange is optional; onError is optional
// and defaults to a no-op.
func New(store coordination.Store, onChange OnRoleChange, onError func(error), logger schema.Logger) *Elector {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	if onError == nil {
		onError = func(error) {}
	}
	e := &Elector{
		store:    store,
		onChange: onChange,
		onError:  onError,
		logger:   logger,
		role:     schema.Follower,
	}
	e.lifecycle = lifecycle.New(e.startInternal, e.stopInternal, logger)
	return e
}

// Start starts the background acquire loop. Follower is the start role.
func (e *Elector) Start(ctx context.Context, cfg Config) error {
	return e.lifecycle.Start(ctx, cfg)
}

// Stop terminates the acquire loop, releases the mutex, and drops role to
// Follower (firing onChange if currently Leader).
func (e *Elector) Stop(ctx context.Context) error {
	return e.lifecycle.Stop(ctx)
}

// IsLeader reports whether this instance currently holds leadership.
func (e *Elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role == schema.Leader
}

func (e *Elector) startInternal(_ context.Context, config any) error {
	cfg := config.(Config)
	if cfg.AcquireCadence <= 0 {
		cfg.AcquireCadence = defaultAcquireCadence
	}
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancelLoop = cancel
	e.loopDone = make(chan struct{})

	go func() {
		defer close(e.loopDone)
		e.runLoop(loopCtx, cfg.Key, cfg.AcquireCadence)
	}()

	return nil
}

func (e *Elector) runLoop(ctx context.Context, key string, cadence time.Duration) {
	for {
		if ctx.Err() != nil {
			return
		}

		acquired, err := e.store.TryAcquire(ctx, key, lockTTL, func() {
			e.setRole(schema.Follower)
		})
		if err != nil {
			e.logger.Warn("leader acquire failed", "key", key, "error", err)
			e.onError(err)
		} else if acquired {
			e.setRole(schema.Leader)
		}

		t := time.NewTimer(cadence)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}

func (e *Elector) setRole(role schema.Role) {
	e.mu.Lock()
	prev := e.role
	e.role = role
	e.mu.Unlock()

	if prev != role && e.onChange != nil {
		e.onChange(role)
	}
}

func (e *Elector) stopInternal(ctx context.Context) error {
	if e.cancelLoop != nil {
		e.cancelLoop()
	}
	if e.loopDone != nil {
		<-e.loopDone
	}

	e.cfgMu.RLock()
	key := e.cfg.Key
	e.cfgMu.RUnlock()

	err := e.store.Release(ctx, key)
	e.setRole(schema.Follower)
	return err
}
