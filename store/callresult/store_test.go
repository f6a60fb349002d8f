package callresult

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/internal/testsupport"
	"github.com/danielglennross/go-dcb/schema"
)

func TestStoreCallResultAppendsAndNotifiesSubscriber(t *testing.T) {
	fs := testsupport.New()

	notified := make(chan []schema.CallResultEvent, 4)
	s := New(fs, func(events []schema.CallResultEvent) {
		notified <- events
	}, nil, nil)

	require.NoError(t, s.Start(context.Background(), Config{Key: "cr", WindowSize: 10}))
	defer s.Stop(context.Background())

	s.StoreCallResult(context.Background(), schema.Success)

	select {
	case events := <-notified:
		require.Len(t, events, 1)
		require.Equal(t, schema.Success, events[0].Outcome)
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}
}

func TestStoreLoadsExistingEntriesOnStart(t *testing.T) {
	fs := testsupport.New()
	_, err := fs.Append(context.Background(), "cr", map[string]string{"callResult": "success", "timestamp": "1"}, 10)
	require.NoError(t, err)
	_, err = fs.Append(context.Background(), "cr", map[string]string{"callResult": "failure", "timestamp": "2"}, 10)
	require.NoError(t, err)

	s := New(fs, nil, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "cr", WindowSize: 10}))
	defer s.Stop(context.Background())

	events := s.GetEvents()
	require.Len(t, events, 2)
	require.Equal(t, schema.Success, events[0].Outcome)
	require.Equal(t, schema.Failure, events[1].Outcome)
}

func TestWindowIsBoundedBySize(t *testing.T) {
	fs := testsupport.New()
	s := New(fs, nil, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "cr", WindowSize: 2}))
	defer s.Stop(context.Background())

	for i := 0; i < 5; i++ {
		s.StoreCallResult(context.Background(), schema.Success)
		require.Eventually(t, func() bool {
			return len(s.GetEvents()) == min(i+1, 2)
		}, time.Second, 2*time.Millisecond)
	}
}

func TestAppendFailureSurfacesThroughOnError(t *testing.T) {
	fs := testsupport.New()
	fs.FailAppend = map[string]bool{"cr": true}

	errs := make(chan error, 1)
	s := New(fs, nil, func(err error) { errs <- err }, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "cr", WindowSize: 10}))
	defer s.Stop(context.Background())

	s.StoreCallResult(context.Background(), schema.Failure)

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("onError never called")
	}
}

func TestStartDefaultsWindowSize(t *testing.T) {
	fs := testsupport.New()
	s := New(fs, nil, nil, nil)
	require.NoError(t, s.Start(context.Background(), Config{Key: "cr"}))
	defer s.Stop(context.Background())
	require.Empty(t, s.GetEvents())
}
