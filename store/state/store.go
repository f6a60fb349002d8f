// Package state implements the circuit-state store: the replicated current
// circuit state plus the timestamp of its last transition.
package state

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/lifecycle"
	"github.com/danielglennross/go-dcb/schema"
)

// retention is the small MAXLEN for the state log; only the most recent
// transitions need to survive.
const retention = 10

// OnStateChange fires on a genuine state transition observed from the log,
// never on the initial load.
type OnStateChange func(newState schema.CircuitState)

// Config is the structurally-comparable configuration the lifecycle Manager
// starts this store with.
type Config struct {
	Key string
}

// Store is the Circuit-State Store.
type Store struct {
	store   coordination.Store
	onError func(error)
	onChange OnStateChange
	logger  schema.Logger

	lifecycle *lifecycle.Manager

	mu      sync.RWMutex
	current schema.StateEvent

	dedicated    coordination.Store
	releaseDed   func() error
	cancelReader context.CancelFunc
	readerDone   chan struct{}

	cfgMu sync.RWMutex
	cfg   Config
}

// New builds a Circuit-State Store. onChange is optional; onError is
// optional and defaults to a no-op.
func New(base coordination.Store, onChange OnStateChange, onError func(error), logger schema.Logger) *Store {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	if onError == nil {
		onError = func(error) {}
	}
	s := &Store{
		store:   base,
		onError: onError,
		onChange: onChange,
		logger:  logger,
		current: schema.StateEvent{ID: "0", State: schema.Passing, TimestampMs: 0},
	}
	s.lifecycle = lifecycle.New(s.startInternal, s.stopInternal, logger)
	return s
}

// Start starts the store with the given config (idempotent per lifecycle rules).
func (s *Store) Start(ctx context.Context, cfg Config) error {
	return s.lifecycle.Start(ctx, cfg)
}

// Stop stops the store.
func (s *Store) Stop(ctx context.Context) error {
	return s.lifecycle.Stop(ctx)
}

// GetState returns the cached current state.
func (s *Store) GetState() schema.CircuitState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.State
}

// GetLastStateChangeTimestamp returns the cached timestamp of the current state.
func (s *Store) GetLastStateChangeTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TimestampMs
}

// SetState appends a new state transition. Write errors surface through
// onError rather than the return value, consistent with the rest of the
// module's fire-and-forget append semantics.
func (s *Store) SetState(ctx context.Context, newState schema.CircuitState) {
	s.cfgMu.RLock()
	cfg := s.cfg
	s.cfgMu.RUnlock()

	fields := map[string]string{
		"state":     newState.String(),
		"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if _, err := s.store.Append(ctx, cfg.Key, fields, retention); err != nil {
		s.logger.Warn("state append failed", "key", cfg.Key, "error", err)
		s.onError(err)
	}
}

func (s *Store) startInternal(ctx context.Context, config any) error {
	cfg := config.(Config)
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()

	dedicated, release, err := s.store.Dedicated(ctx)
	if err != nil {
		return err
	}
	s.dedicated = dedicated
	s.releaseDed = release

	latest, err := dedicated.ReadRange(ctx, cfg.Key, "-", "+", 1)
	if err != nil {
		_ = release()
		return err
	}

	s.mu.Lock()
	if len(latest) == 1 {
		if ev, ok := toEvent(latest[0]); ok {
			s.current = ev
		}
	}
	s.mu.Unlock()

	readerCtx, cancel := context.WithCancel(context.Background())
	s.cancelReader = cancel
	s.readerDone = make(chan struct{})

	getLast := func() string {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.current.ID
	}

	reader := coordination.New(dedicated, cfg.Key, getLast, s.onEntries, func(err error) {
		s.onError(err)
	}, s.logger)

	go func() {
		defer close(s.readerDone)
		reader.Run(readerCtx)
	}()

	return nil
}

func (s *Store) onEntries(entries []coordination.LogEntry) {
	if len(entries) == 0 {
		return
	}
	last := entries[len(entries)-1]
	ev, ok := toEvent(last)
	if !ok {
		return
	}

	s.mu.Lock()
	prev := s.current.State
	s.current = ev
	s.mu.Unlock()

	if ev.State != prev && s.onChange != nil {
		s.onChange(ev.State)
	}
}

func (s *Store) stopInternal(_ context.Context) error {
	if s.cancelReader != nil {
		s.cancelReader()
	}
	if s.readerDone != nil {
		<-s.readerDone
	}
	if s.releaseDed != nil {
		return s.releaseDed()
	}
	return nil
}

func toEvent(e coordination.LogEntry) (schema.StateEvent, bool) {
	st, ok := schema.ParseCircuitState(e.Fields["state"])
	if !ok {
		return schema.StateEvent{}, false
	}
	ts, _ := strconv.ParseInt(e.Fields["timestamp"], 10, 64)
	return schema.StateEvent{ID: e.ID, State: st, TimestampMs: ts}, true
}
