// Package coordination defines the two abstractions the library requires
// from the backing key-value store: an ordered, append-only log with a
// blocking tail and MAXLEN trimming, and a distributed mutex with
// automatic renewal and lock-lost notification. The Log Reader in this
// package builds the blocking-tail loop every replicated store reuses.
//
// The only shipped implementation lives in coordination/redis; every other
// package in this module depends solely on the interfaces here, so a
// different coordination store can be substituted without touching the
// stores, the elector, or the orchestrator.
package coordination

import (
	"context"
	"time"
)

// LogEntry is one record read back from an append-only log. Fields mirrors
// the flat field list the wire format uses.
type LogEntry struct {
	ID     string
	Fields map[string]string
}

// Log is the append-only log contract. Positions are opaque strings, totally
// ordered lexicographically within one key.
type Log interface {
	// Append writes fields to key, trimming the log to approximately
	// maxLen entries, and returns the new entry's position.
	Append(ctx context.Context, key string, fields map[string]string, maxLen int64) (position string, err error)

	// ReadRange returns up to count entries on key with position in [from, to],
	// oldest first. When count limits the result, the most recent count
	// entries of that range are returned; a count of zero returns them all.
	ReadRange(ctx context.Context, key, from, to string, count int64) ([]LogEntry, error)

	// Tail blocks for up to block for entries on key after afterPosition,
	// returning immediately once any arrive. An empty result with a nil
	// error means the block elapsed with nothing new.
	Tail(ctx context.Context, key, afterPosition string, block time.Duration) ([]LogEntry, error)
}

// LockLostFunc is invoked when a previously-acquired mutex is lost: it
// expired, renewal failed, or the connection to the coordination store was
// partitioned. It is called at most once per successful TryAcquire.
type LockLostFunc func()

// Mutex is the distributed mutex contract. While held, an implementation is
// responsible for renewing the lock automatically; onLockLost fires exactly
// once if that renewal ever fails.
type Mutex interface {
	// TryAcquire makes one attempt to acquire key. onLockLost is armed only
	// if acquisition succeeds.
	TryAcquire(ctx context.Context, key string, ttl time.Duration, onLockLost LockLostFunc) (acquired bool, err error)

	// Release gives up a held lock. It is safe to call even if the lock was
	// never acquired or was already lost.
	Release(ctx context.Context, key string) error
}

// Store bundles the Log and Mutex contracts plus a dedicated-connection
// lifecycle hook: a Log Reader's blocking tail must not stall unrelated
// RPCs, so it opens its own connection on start and releases it on stop.
type Store interface {
	Log
	Mutex

	// Dedicated returns a Store backed by a connection exclusively owned by
	// the caller, plus a release function to call on stop. Implementations
	// that are inherently connection-pooled (as most Redis clients are) may
	// return themselves with a no-op release; the contract exists so a
	// store that is NOT safe to share for blocking reads can hand out an
	// isolated handle.
	Dedicated(ctx context.Context) (Store, func() error, error)
}
