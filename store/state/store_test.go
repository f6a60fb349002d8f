package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/internal/testsupport"
	"github.com/danielglennross/go-dcb/schema"
)

func TestNewStoreDefaultsToPassing(t *testing.T) {
	fs := testsupport.New()
	s := New(fs, nil, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "state"}))
	defer s.Stop(context.Background())

	require.Equal(t, schema.Passing, s.GetState())
}

func TestSetStateReplicatesAndNotifiesOnGenuineTransition(t *testing.T) {
	fs := testsupport.New()

	changes := make(chan schema.CircuitState, 4)
	s := New(fs, func(st schema.CircuitState) { changes <- st }, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "state"}))
	defer s.Stop(context.Background())

	s.SetState(context.Background(), schema.Blocking)

	select {
	case st := <-changes:
		require.Equal(t, schema.Blocking, st)
	case <-time.After(time.Second):
		t.Fatal("onChange never called")
	}

	require.Eventually(t, func() bool { return s.GetState() == schema.Blocking }, time.Second, 2*time.Millisecond)
}

func TestSecondInstanceObservesReplicatedStateOnStart(t *testing.T) {
	fs := testsupport.New()

	s1 := New(fs, nil, nil, nil)
	require.NoError(t, s1.Start(context.Background(), Config{Key: "state"}))
	s1.SetState(context.Background(), schema.Blocking)
	require.Eventually(t, func() bool { return s1.GetState() == schema.Blocking }, time.Second, 2*time.Millisecond)
	require.NoError(t, s1.Stop(context.Background()))

	s2 := New(fs, nil, nil, nil)
	require.NoError(t, s2.Start(context.Background(), Config{Key: "state"}))
	defer s2.Stop(context.Background())

	require.Equal(t, schema.Blocking, s2.GetState())
}

func TestGetLastStateChangeTimestampTracksLatestTransition(t *testing.T) {
	fs := testsupport.New()
	s := New(fs, nil, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "state"}))
	defer s.Stop(context.Background())

	before := s.GetLastStateChangeTimestamp()
	s.SetState(context.Background(), schema.Blocking)

	require.Eventually(t, func() bool {
		return s.GetLastStateChangeTimestamp() > before
	}, time.Second, 2*time.Millisecond)
}
