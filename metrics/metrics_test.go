package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopSinkDiscardsEverything(t *testing.T) {
	var s Sink = Noop{}
	require.NotPanics(t, func() {
		s.Initialize("circuit")
		s.RecordCall(CallRecord{ID: "circuit"})
		s.RecordBlockedRequest(BlockedRecord{ID: "circuit"})
		s.RecordHealthCheck(HealthCheckRecord{ID: "circuit"})
	})
}

func TestDurationConvertsToMilliseconds(t *testing.T) {
	require.Equal(t, int64(250), Duration(250*time.Millisecond))
}
