// Package redis is the only shipped coordination.Store implementation. It
// models the append-only log on a Redis stream (XADD/XRANGE/XREAD BLOCK)
// and the distributed mutex on the Redlock algorithm via
// github.com/go-redsync/redsync/v4, built on github.com/redis/go-redis/v9,
// the way LerianStudio-lib-uncommons's uncommons/redis package builds its
// own Redlock wrapper.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/danielglennross/go-dcb/coordination"
	"github.com/danielglennross/go-dcb/schema"

	"github.com/go-redsync/redsync/v4"
	redsyncgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

const streamBlockMinimum = 50 * time.Millisecond

// Store is a coordination.Store backed by a single Redis deployment
// (standalone, sentinel, or cluster, depending on the client passed in).
type Store struct {
	client  goredis.UniversalClient
	rs      *redsync.Redsync
	owned   bool // true if this Store opened client itself and must close it
	logger  schema.Logger
	mu      sync.Mutex
	locks   map[string]*heldLock
}

type heldLock struct {
	mutex  *redsync.Mutex
	cancel context.CancelFunc
}

// Options configures a new Store.
type Options struct {
	// Addrs lists one or more Redis addresses. A single address uses a
	// standalone client; more than one uses redis.NewUniversalClient's
	// cluster-aware behaviour.
	Addrs    []string
	Password string
	DB       int
	Logger   schema.Logger
}

// New connects to Redis and builds a Store. The returned Store owns the
// client it creates and will close it on Close.
func New(opts Options) *Store {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    opts.Addrs,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return wrap(client, true, opts.Logger)
}

// NewFromClient adapts an existing client. The caller retains ownership and
// must close it themselves; Close on the returned Store is a no-op.
func NewFromClient(client goredis.UniversalClient, logger schema.Logger) *Store {
	return wrap(client, false, logger)
}

func wrap(client goredis.UniversalClient, owned bool, logger schema.Logger) *Store {
	if logger == nil {
		logger = schema.NopLogger{}
	}
	pool := redsyncgoredis.NewPool(client)
	return &Store{
		client: client,
		rs:     redsync.New(pool),
		owned:  owned,
		logger: logger,
		locks:  make(map[string]*heldLock),
	}
}

// Close releases the underlying client if this Store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// Append implements coordination.Log by XADDing a two-field entry with an
// approximate MAXLEN trim.
func (s *Store) Append(ctx context.Context, key string, fields map[string]string, maxLen int64) (string, error) {
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	args := &goredis.XAddArgs{
		Stream: key,
		MaxLen: maxLen,
		Approx: true,
		Values: values,
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("redis: append %s: %w", key, err)
	}
	return id, nil
}

// ReadRange implements coordination.Log via XRANGE, or via XREVRANGE when
// count limits the result so that the most recent entries are the ones
// returned (reversed back to oldest-first).
func (s *Store) ReadRange(ctx context.Context, key, from, to string, count int64) ([]coordination.LogEntry, error) {
	var (
		msgs []goredis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = s.client.XRevRangeN(ctx, key, to, from, count).Result()
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	} else {
		msgs, err = s.client.XRange(ctx, key, from, to).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis: read range %s: %w", key, err)
	}
	return toEntries(msgs), nil
}

// Tail implements coordination.Log via a single blocking XREAD, bounded by
// block so shutdown remains observable within that window.
func (s *Store) Tail(ctx context.Context, key, afterPosition string, block time.Duration) ([]coordination.LogEntry, error) {
	if afterPosition == "" {
		afterPosition = "0"
	}
	if block < streamBlockMinimum {
		block = streamBlockMinimum
	}

	res, err := s.client.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{key, afterPosition},
		Block:   block,
	}).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("redis: tail %s: %w", key, err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	return toEntries(res[0].Messages), nil
}

func toEntries(msgs []goredis.XMessage) []coordination.LogEntry {
	entries := make([]coordination.LogEntry, 0, len(msgs))
	for _, m := range msgs {
		fields := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			if s, ok := v.(string); ok {
				fields[k] = s
			} else {
				fields[k] = fmt.Sprintf("%v", v)
			}
		}
		entries = append(entries, coordination.LogEntry{ID: m.ID, Fields: fields})
	}
	return entries
}

// TryAcquire implements coordination.Mutex using a Redlock mutex via
// redsync, whose pool abstraction speaks the same SET-NX-PX /
// compare-and-del Lua scripts a hand-rolled single-client quorum lock
// would. While held, a background goroutine periodically extends the lock;
// if an extension ever
// fails, onLockLost fires exactly once and the background goroutine exits.
func (s *Store) TryAcquire(ctx context.Context, key string, ttl time.Duration, onLockLost coordination.LockLostFunc) (bool, error) {
	mutex := s.rs.NewMutex(lockName(key), redsync.WithExpiry(ttl))

	if err := mutex.TryLockContext(ctx); err != nil {
		return false, nil //nolint: nilerr // failure to acquire is not a transport error
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.locks[key] = &heldLock{mutex: mutex, cancel: cancel}
	s.mu.Unlock()

	go s.renew(lockCtx, key, mutex, ttl, onLockLost)

	return true, nil
}

func (s *Store) renew(ctx context.Context, key string, mutex *redsync.Mutex, ttl time.Duration, onLockLost coordination.LockLostFunc) {
	interval := ttl / 3
	if interval <= 0 {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := mutex.ExtendContext(ctx)
			if err != nil || !ok {
				s.logger.Warn("redis lock lost", "key", key, "error", err)
				s.mu.Lock()
				delete(s.locks, key)
				s.mu.Unlock()
				if onLockLost != nil {
					onLockLost()
				}
				return
			}
		}
	}
}

// Release implements coordination.Mutex.
func (s *Store) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	held, ok := s.locks[key]
	if ok {
		delete(s.locks, key)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	held.cancel()
	if _, err := held.mutex.UnlockContext(ctx); err != nil {
		return fmt.Errorf("redis: release %s: %w", key, err)
	}
	return nil
}

// Dedicated hands a log reader a connection safe to hold open for blocking
// reads. go-redis's UniversalClient is already a connection pool safe for
// concurrent blocking commands, so Dedicated returns the same Store with a
// no-op release; a coordination store whose client is NOT safe to share
// for blocking reads would open a fresh connection here instead.
func (s *Store) Dedicated(_ context.Context) (coordination.Store, func() error, error) {
	return s, func() error { return nil }, nil
}

func lockName(key string) string {
	return key
}
