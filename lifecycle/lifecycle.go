// Package lifecycle implements the five-phase state machine every stateful
// subsystem in this module embeds: the two replicated stores, the leader
// elector, and the orchestrator all drive their start/stop/restart
// behaviour through a Manager instead of ad-hoc
// booleans, since a plain "started" flag does not compose once multiple
// goroutines race to flip it.
package lifecycle

import (
	"context"
	"reflect"
	"sync"

	"github.com/danielglennross/go-dcb/schema"
)

// StartFunc performs the subsystem-specific work of entering Operational.
// An error returned here is terminal: the manager moves to Unrecoverable.
type StartFunc func(ctx context.Context, config any) error

// StopFunc performs the subsystem-specific work of returning to Inactive.
// An error returned here is terminal: the manager moves to Unrecoverable.
type StopFunc func(ctx context.Context) error

// Manager is a reusable Inactive -> Starting -> Operational -> Stopping ->
// Inactive state machine, with Unrecoverable reachable from any phase on a
// subsystem failure. Each Manager instance is an independent state machine;
// there is no shared state between instances.
type Manager struct {
	startInternal StartFunc
	stopInternal  StopFunc
	logger        schema.Logger

	mu          sync.Mutex
	phase       schema.LifecyclePhase
	config      any
	cause       error
	inFlight    chan struct{} // closed when the current Start or Stop completes
	inFlightErr error
}

// New builds a Manager around the subsystem's start/stop hooks.
func New(start StartFunc, stop StopFunc, logger schema.Logger) *Manager {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	return &Manager{
		startInternal: start,
		stopInternal:  stop,
		logger:        logger,
		phase:         schema.Inactive,
	}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() schema.LifecyclePhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// IsOperational reports whether the manager is currently Operational.
func (m *Manager) IsOperational() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == schema.Operational
}

// Start promotes Inactive to Operational, running startInternal in between.
//
// If already Starting with a structurally-equal config, Start awaits that
// in-flight attempt and returns its outcome. If already Starting with a
// different config, Start fails with schema.NewBusyError without waiting.
// If already Operational with an equal config, Start is a no-op. If
// already Operational with a different config, Start fails with
// schema.NewRunningError. If Stopping, Start awaits the stop and recurses.
// If Unrecoverable, Start fails immediately.
func (m *Manager) Start(ctx context.Context, config any) error {
	for {
		m.mu.Lock()
		switch m.phase {
		case schema.Inactive:
			m.phase = schema.Starting
			m.config = config
			done := make(chan struct{})
			m.inFlight = done
			m.mu.Unlock()

			m.logger.Debug("lifecycle starting", "config", config)
			err := m.startInternal(ctx, config)

			m.mu.Lock()
			if err != nil {
				m.phase = schema.Unrecoverable
				m.cause = err
				m.inFlightErr = err
				m.logger.Error("lifecycle unrecoverable on start", "error", err)
			} else {
				m.phase = schema.Operational
				m.logger.Debug("lifecycle operational")
			}
			close(done)
			m.inFlight = nil
			outErr := m.inFlightErr
			m.inFlightErr = nil
			m.mu.Unlock()
			return outErr

		case schema.Starting:
			same := reflect.DeepEqual(m.config, config)
			inFlight := m.inFlight
			m.mu.Unlock()
			if !same {
				return schema.NewBusyError()
			}
			if inFlight != nil {
				select {
				case <-inFlight:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue

		case schema.Operational:
			same := reflect.DeepEqual(m.config, config)
			m.mu.Unlock()
			if same {
				return nil
			}
			return schema.NewRunningError()

		case schema.Stopping:
			inFlight := m.inFlight
			m.mu.Unlock()
			if inFlight != nil {
				select {
				case <-inFlight:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue

		case schema.Unrecoverable:
			cause := m.cause
			m.mu.Unlock()
			return schema.NewUnrecoverableError(cause)

		default:
			m.mu.Unlock()
			return schema.NewUnrecoverableError(nil)
		}
	}
}

// Stop demotes Operational to Inactive, running stopInternal in between.
// Idempotent on Inactive. If Starting, Stop awaits the start then stops.
// If already Stopping, Stop joins the in-flight stop.
func (m *Manager) Stop(ctx context.Context) error {
	for {
		m.mu.Lock()
		switch m.phase {
		case schema.Inactive:
			m.mu.Unlock()
			return nil

		case schema.Operational:
			m.phase = schema.Stopping
			done := make(chan struct{})
			m.inFlight = done
			m.mu.Unlock()

			m.logger.Debug("lifecycle stopping")
			err := m.stopInternal(ctx)

			m.mu.Lock()
			if err != nil {
				m.phase = schema.Unrecoverable
				m.cause = err
				m.inFlightErr = err
				m.logger.Error("lifecycle unrecoverable on stop", "error", err)
			} else {
				m.phase = schema.Inactive
				m.config = nil
				m.logger.Debug("lifecycle inactive")
			}
			close(done)
			m.inFlight = nil
			outErr := m.inFlightErr
			m.inFlightErr = nil
			m.mu.Unlock()
			return outErr

		case schema.Starting:
			inFlight := m.inFlight
			m.mu.Unlock()
			if inFlight != nil {
				select {
				case <-inFlight:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue

		case schema.Stopping:
			inFlight := m.inFlight
			m.mu.Unlock()
			if inFlight != nil {
				select {
				case <-inFlight:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil

		case schema.Unrecoverable:
			cause := m.cause
			m.mu.Unlock()
			return schema.NewUnrecoverableError(cause)

		default:
			m.mu.Unlock()
			return schema.NewUnrecoverableError(nil)
		}
	}
}

// Restart repeatedly stops until Inactive, then starts with config.
func (m *Manager) Restart(ctx context.Context, config any) error {
	for {
		if err := m.Stop(ctx); err != nil {
			return err
		}
		if m.Phase() == schema.Inactive {
			break
		}
	}
	return m.Start(ctx, config)
}
