package breaker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/internal/testsupport"
	"github.com/danielglennross/go-dcb/metrics"
	"github.com/danielglennross/go-dcb/schema"
	"github.com/danielglennross/go-dcb/strategy"
)

// mockSink is a testify/mock double for metrics.Sink, used where asserting
// on call *arguments* (not just that some call happened) matters.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Initialize(id string) { m.Called(id) }

func (m *mockSink) RecordCall(rec metrics.CallRecord) { m.Called(rec) }

func (m *mockSink) RecordBlockedRequest(rec metrics.BlockedRecord) { m.Called(rec) }

func (m *mockSink) RecordHealthCheck(rec metrics.HealthCheckRecord) { m.Called(rec) }

func TestExecuteRecordsCallOnMockSink(t *testing.T) {
	sink := &mockSink{}
	sink.On("Initialize", "mocked").Return()
	sink.On("RecordCall", mock.AnythingOfType("metrics.CallRecord")).Return()

	cb, err := New(Config{
		ID:      "mocked",
		Store:   testsupport.New(),
		Breaker: strategy.ConsecutiveFailures(100),
		Health:  HealthConfig{Backoff: fixedBackoff(5), Check: alwaysOK},
		Metrics: sink,
	})
	require.NoError(t, err)
	require.NoError(t, cb.Start(context.Background()))
	defer cb.Stop(context.Background())

	_, err = cb.Execute(ok)
	require.NoError(t, err)

	sink.AssertCalled(t, "RecordCall", mock.AnythingOfType("metrics.CallRecord"))
}

func TestBlockedRequestRecordsOnMockSink(t *testing.T) {
	sink := &mockSink{}
	sink.On("Initialize", "mocked-blocked").Return()
	sink.On("RecordBlockedRequest", metrics.BlockedRecord{ID: "mocked-blocked"}).Return()

	cb, err := New(Config{
		ID:      "mocked-blocked",
		Store:   testsupport.New(),
		Breaker: strategy.ConsecutiveFailures(100),
		Health:  HealthConfig{Backoff: fixedBackoff(5), Check: alwaysOK},
		Metrics: sink,
	})
	require.NoError(t, err)
	require.NoError(t, cb.Start(context.Background()))
	defer cb.Stop(context.Background())

	waitForRole(t, cb, schema.Leader)
	cb.Isolate(context.Background())
	waitForState(t, cb, schema.Blocking)

	_, err = cb.Execute(ok)
	require.Error(t, err)

	sink.AssertCalled(t, "RecordBlockedRequest", metrics.BlockedRecord{ID: "mocked-blocked"})
}
