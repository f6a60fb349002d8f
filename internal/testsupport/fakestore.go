// Package testsupport provides a hand-written in-memory fake of
// coordination.Store, a sync.Mutex-guarded map generalized to the log+mutex
// contract package coordination defines, so the orchestrator, stores,
// elector, and scheduler can be exercised end-to-end in tests without a
// live Redis instance.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/danielglennross/go-dcb/coordination"
)

// FakeStore is a single-process, goroutine-safe coordination.Store backed
// by in-memory append-only slices and a map of held locks. It emulates
// blocking reads by polling (see Tail) so Reader.Run's tail loop behaves
// the same as it would against a real log.
type FakeStore struct {
	mu    sync.Mutex
	logs  map[string][]coordination.LogEntry
	seq   map[string]int64
	locks map[string]string // key -> holder token

	// FailAppend, when set, causes every Append on the matching key to
	// fail once and then clear itself, letting tests exercise onError.
	FailAppend map[string]bool
}

// New builds an empty FakeStore.
func New() *FakeStore {
	return &FakeStore{
		logs:  make(map[string][]coordination.LogEntry),
		seq:   make(map[string]int64),
		locks: make(map[string]string),
	}
}

func (s *FakeStore) nextID(key string) string {
	s.seq[key]++
	return fmt.Sprintf("%020d", s.seq[key])
}

// Append implements coordination.Log.
func (s *FakeStore) Append(_ context.Context, key string, fields map[string]string, maxLen int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppend != nil && s.FailAppend[key] {
		delete(s.FailAppend, key)
		return "", fmt.Errorf("testsupport: simulated append failure for %s", key)
	}

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	id := s.nextID(key)
	s.logs[key] = append(s.logs[key], coordination.LogEntry{ID: id, Fields: copied})

	if maxLen > 0 && int64(len(s.logs[key])) > maxLen {
		s.logs[key] = s.logs[key][int64(len(s.logs[key]))-maxLen:]
	}

	return id, nil
}

// ReadRange implements coordination.Log.
func (s *FakeStore) ReadRange(_ context.Context, key, from, to string, count int64) ([]coordination.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[key]
	out := make([]coordination.LogEntry, 0, len(entries))
	for _, e := range entries {
		if inRange(e.ID, from, to) {
			out = append(out, e)
		}
	}
	if count > 0 && int64(len(out)) > count {
		out = out[int64(len(out))-count:]
	}
	return out, nil
}

// tailPoll is how often Tail re-checks for new entries while blocked. Tests
// run on millisecond timescales, so this stays well under typical backoff
// and probe delays without busy-spinning.
const tailPoll = 5 * time.Millisecond

// Tail implements coordination.Log by polling until an entry newer than
// afterPosition exists or block elapses.
func (s *FakeStore) Tail(ctx context.Context, key, afterPosition string, block time.Duration) ([]coordination.LogEntry, error) {
	deadline := time.Now().Add(block)

	for {
		s.mu.Lock()
		newer := newerThan(s.logs[key], afterPosition)
		s.mu.Unlock()
		if len(newer) > 0 {
			return newer, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if time.Now().After(deadline) {
			return nil, nil
		}

		t := time.NewTimer(tailPoll)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}

// TryAcquire implements coordination.Mutex with simple single-process
// mutual exclusion; onLockLost is never invoked by the fake since there is
// no external expiry to simulate.
func (s *FakeStore) TryAcquire(_ context.Context, key string, _ time.Duration, _ coordination.LockLostFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[key]; held {
		return false, nil
	}
	s.locks[key] = "held"
	return true, nil
}

// Release implements coordination.Mutex.
func (s *FakeStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

// Dedicated implements coordination.Store by returning the same store; the
// fake has no real connections to isolate.
func (s *FakeStore) Dedicated(_ context.Context) (coordination.Store, func() error, error) {
	return s, func() error { return nil }, nil
}

func inRange(id, from, to string) bool {
	if from != "-" && id < from {
		return false
	}
	if to != "+" && id > to {
		return false
	}
	return true
}

func newerThan(entries []coordination.LogEntry, after string) []coordination.LogEntry {
	if after == "" || after == "0" {
		return append([]coordination.LogEntry{}, entries...)
	}
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].ID > after })
	if idx >= len(entries) {
		return nil
	}
	return append([]coordination.LogEntry{}, entries[idx:]...)
}

// Millis is a small test helper matching the wire format timestamp field.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
