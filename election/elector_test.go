package election

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/internal/testsupport"
	"github.com/danielglennross/go-dcb/schema"
)

func TestElectorStartsAsFollower(t *testing.T) {
	e := New(testsupport.New(), nil, nil, nil)
	require.False(t, e.IsLeader())
}

func TestElectorAcquiresLeadershipAndNotifies(t *testing.T) {
	store := testsupport.New()

	var mu sync.Mutex
	var roles []schema.Role
	e := New(store, func(r schema.Role) {
		mu.Lock()
		roles = append(roles, r)
		mu.Unlock()
	}, nil, nil)

	require.NoError(t, e.Start(context.Background(), Config{Key: "leader"}))

	require.Eventually(t, func() bool { return e.IsLeader() }, time.Second, 2*time.Millisecond)
	require.NoError(t, e.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []schema.Role{schema.Leader, schema.Follower}, roles)
}

func TestOnlyOneElectorHoldsLeadershipAtATime(t *testing.T) {
	store := testsupport.New()

	e1 := New(store, nil, nil, nil)
	e2 := New(store, nil, nil, nil)

	require.NoError(t, e1.Start(context.Background(), Config{Key: "leader"}))
	require.NoError(t, e2.Start(context.Background(), Config{Key: "leader"}))

	require.Eventually(t, func() bool {
		return e1.IsLeader() != e2.IsLeader()
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, e1.Stop(context.Background()))
	require.NoError(t, e2.Stop(context.Background()))
}

func TestStopDropsLeadershipAndReleasesLock(t *testing.T) {
	store := testsupport.New()
	e := New(store, nil, nil, nil)

	require.NoError(t, e.Start(context.Background(), Config{Key: "leader"}))
	require.Eventually(t, e.IsLeader, time.Second, 2*time.Millisecond)

	require.NoError(t, e.Stop(context.Background()))
	require.False(t, e.IsLeader())

	acquired, err := store.TryAcquire(context.Background(), "leader", time.Second, nil)
	require.NoError(t, err)
	require.True(t, acquired)
}
