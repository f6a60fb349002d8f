// Package callresult implements the call-result store: an in-memory bounded
// window of recent call outcomes, replicated through the call-result log
// and refreshed by a Log Reader tailing it.
package callresult

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/lifecycle"
	"github.com/danielglennross/go-dcb/schema"
)

// DefaultWindowSize is the default bound on the in-memory event window.
const DefaultWindowSize = 1000

// Subscriber receives the full current window (not a delta) every time new
// entries arrive. Implementations must tolerate receiving the same tail
// repeatedly.
type Subscriber func(events []schema.CallResultEvent)

// Config is the structurally-comparable configuration the lifecycle Manager
// starts this store with.
type Config struct {
	Key        string
	WindowSize int
}

// Store is the Call-Result Store.
type Store struct {
	store      coordination.Store
	onError    func(error)
	subscriber Subscriber
	logger     schema.Logger

	lifecycle *lifecycle.Manager

	mu     sync.Mutex
	window []schema.CallResultEvent

	dedicated     coordination.Store
	releaseDed    func() error
	cancelReader  context.CancelFunc
	readerDone    chan struct{}

	cfgMu sync.RWMutex
	cfg   Config
}

// New builds a Call-Result Store. subscriber is optional; onError is
// optional and defaults to a logged no-op.
func New(base coordination.Store, subscriber Subscriber, onError func(error), logger schema.Logger) *Store {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	if onError == nil {
		onError = func(error) {}
	}
	s := &Store{
		store:      base,
		onError:    onError,
		subscriber: subscriber,
		logger:     logger,
	}
	s.lifecycle = lifecycle.New(s.startInternal, s.stopInternal, logger)
	return s
}

// Start starts the store with the given config (idempotent per lifecycle rules).
func (s *Store) Start(ctx context.Context, cfg Config) error {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	return s.lifecycle.Start(ctx, cfg)
}

// Stop stops the store.
func (s *Store) Stop(ctx context.Context) error {
	return s.lifecycle.Stop(ctx)
}

// GetEvents returns a snapshot of the current window, oldest-first.
func (s *Store) GetEvents() []schema.CallResultEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.CallResultEvent, len(s.window))
	copy(out, s.window)
	return out
}

// StoreCallResult appends outcome to the log with MAXLEN retention. Appends
// are fire-and-forget from the caller's perspective; write errors surface
// through onError, never as a return value the caller must check
// synchronously.
func (s *Store) StoreCallResult(ctx context.Context, outcome schema.CallOutcome) {
	s.cfgMu.RLock()
	cfg := s.cfg
	s.cfgMu.RUnlock()

	fields := map[string]string{
		"callResult": outcome.String(),
		"timestamp":  strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if _, err := s.store.Append(ctx, cfg.Key, fields, int64(cfg.WindowSize)); err != nil {
		s.logger.Warn("call-result append failed", "key", cfg.Key, "error", err)
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

	initial, err := dedicated.ReadRange(ctx, cfg.Key, "-", "+", int64(cfg.WindowSize))
	if err != nil {
		_ = release()
		return err
	}

	events := make([]schema.CallResultEvent, 0, len(initial))
	for _, e := range initial {
		ev, ok := toEvent(e)
		if ok {
			events = append(events, ev)
		}
	}

	s.mu.Lock()
	s.window = events
	s.mu.Unlock()

	if len(events) > 0 && s.subscriber != nil {
		s.subscriber(s.GetEvents())
	}

	readerCtx, cancel := context.WithCancel(context.Background())
	s.cancelReader = cancel
	s.readerDone = make(chan struct{})

	lastID := ""
	if len(events) > 0 {
		lastID = events[len(events)-1].ID
	}

	getLast := func() string {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.window) > 0 {
			return s.window[len(s.window)-1].ID
		}
		return lastID
	}

	reader := coordination.New(dedicated, cfg.Key, getLast, func(entries []coordination.LogEntry) {
		s.onEntries(cfg, entries)
	}, func(err error) {
		s.onError(err)
	}, s.logger)

	go func() {
		defer close(s.readerDone)
		reader.Run(readerCtx)
	}()

	return nil
}

func (s *Store) onEntries(cfg Config, entries []coordination.LogEntry) {
	added := false
	s.mu.Lock()
	for _, e := range entries {
		ev, ok := toEvent(e)
		if !ok {
			continue
		}
		s.window = append(s.window, ev)
		added = true
	}
	if len(s.window) > cfg.WindowSize {
		s.window = s.window[len(s.window)-cfg.WindowSize:]
	}
	s.mu.Unlock()

	if added && s.subscriber != nil {
		s.subscriber(s.GetEvents())
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

func toEvent(e coordination.LogEntry) (schema.CallResultEvent, bool) {
	outcome, ok := schema.ParseCallOutcome(e.Fields["callResult"])
	if !ok {
		return schema.CallResultEvent{}, false
	}
	ts, _ := strconv.ParseInt(e.Fields["timestamp"], 10, 64)
	return schema.CallResultEvent{ID: e.ID, Outcome: outcome, TimestampMs: ts}, true
}
