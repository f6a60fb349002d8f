package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/schema"
)

func noopStop(context.Context) error { return nil }

func TestStartMovesInactiveToOperational(t *testing.T) {
	m := New(func(context.Context, any) error { return nil }, noopStop, nil)

	require.Equal(t, schema.Inactive, m.Phase())
	require.NoError(t, m.Start(context.Background(), "cfg"))
	require.Equal(t, schema.Operational, m.Phase())
	require.True(t, m.IsOperational())
}

func TestStartWithSameConfigIsNoopWhenOperational(t *testing.T) {
	calls := 0
	m := New(func(context.Context, any) error { calls++; return nil }, noopStop, nil)

	require.NoError(t, m.Start(context.Background(), "cfg"))
	require.NoError(t, m.Start(context.Background(), "cfg"))
	require.Equal(t, 1, calls)
}

func TestStartWithDifferentConfigFailsWhenOperational(t *testing.T) {
	m := New(func(context.Context, any) error { return nil }, noopStop, nil)

	require.NoError(t, m.Start(context.Background(), "cfg-a"))
	err := m.Start(context.Background(), "cfg-b")

	var le *schema.LifecycleError
	require.ErrorAs(t, err, &le)
	require.Equal(t, schema.Operational, le.Phase)
}

func TestStartFailureMovesToUnrecoverable(t *testing.T) {
	boom := errors.New("boom")
	m := New(func(context.Context, any) error { return boom }, noopStop, nil)

	err := m.Start(context.Background(), "cfg")
	require.ErrorContains(t, err, "boom")
	require.Equal(t, schema.Unrecoverable, m.Phase())

	err = m.Start(context.Background(), "cfg")
	require.Error(t, err)
}

func TestStopMovesOperationalToInactive(t *testing.T) {
	m := New(func(context.Context, any) error { return nil }, noopStop, nil)

	require.NoError(t, m.Start(context.Background(), "cfg"))
	require.NoError(t, m.Stop(context.Background()))
	require.Equal(t, schema.Inactive, m.Phase())
}

func TestStopOnInactiveIsNoop(t *testing.T) {
	m := New(func(context.Context, any) error { return nil }, noopStop, nil)
	require.NoError(t, m.Stop(context.Background()))
}

func TestRestartStopsThenStartsWithNewConfig(t *testing.T) {
	var mu sync.Mutex
	var seen []any
	m := New(func(_ context.Context, cfg any) error {
		mu.Lock()
		seen = append(seen, cfg)
		mu.Unlock()
		return nil
	}, noopStop, nil)

	require.NoError(t, m.Start(context.Background(), "cfg-a"))
	require.NoError(t, m.Restart(context.Background(), "cfg-b"))
	require.Equal(t, schema.Operational, m.Phase())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []any{"cfg-a", "cfg-b"}, seen)
}

func TestConcurrentStartsWithSameConfigAllSucceed(t *testing.T) {
	started := make(chan struct{})
	m := New(func(context.Context, any) error {
		close(started)
		return nil
	}, noopStop, nil)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Start(context.Background(), "cfg")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, schema.Operational, m.Phase())
}
