package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielglennross/go-dcb/schema"
)

func events(outcomes ...schema.CallOutcome) []schema.CallResultEvent {
	out := make([]schema.CallResultEvent, len(outcomes))
	for i, o := range outcomes {
		out[i] = schema.CallResultEvent{Outcome: o, TimestampMs: int64(i) * 1000}
	}
	return out
}

func TestConsecutiveFailuresOpensOnTrailingRun(t *testing.T) {
	s := ConsecutiveFailures(3)

	require.False(t, s.Evaluate(events(schema.Success, schema.Failure, schema.Failure)))
	require.True(t, s.Evaluate(events(schema.Success, schema.Failure, schema.Failure, schema.Failure)))
}

func TestConsecutiveFailuresResetsOnIntermediateSuccess(t *testing.T) {
	s := ConsecutiveFailures(3)

	require.False(t, s.Evaluate(events(schema.Failure, schema.Failure, schema.Success, schema.Failure, schema.Failure)))
}

func TestConsecutiveFailuresWithZeroThresholdNeverOpens(t *testing.T) {
	s := ConsecutiveFailures(0)
	require.False(t, s.Evaluate(events(schema.Failure, schema.Failure, schema.Failure)))
}

func TestCountWindowOpensOnAnyArrangement(t *testing.T) {
	s := CountWindow(3)

	require.False(t, s.Evaluate(events(schema.Failure, schema.Success, schema.Failure)))
	require.True(t, s.Evaluate(events(schema.Failure, schema.Success, schema.Failure, schema.Failure)))
}

func TestTimeWindowOnlyCountsWithinWindow(t *testing.T) {
	s := TimeWindow(2*time.Second, 2)

	evs := []schema.CallResultEvent{
		{Outcome: schema.Failure, TimestampMs: 0},
		{Outcome: schema.Failure, TimestampMs: 500},
		{Outcome: schema.Failure, TimestampMs: 4000},
	}
	// Newest event is at 4000ms; the window only reaches back to 2000ms, so
	// only the single failure at 4000ms counts.
	require.False(t, s.Evaluate(evs))

	evs = append(evs, schema.CallResultEvent{Outcome: schema.Failure, TimestampMs: 4200})
	require.True(t, s.Evaluate(evs))
}

func TestTimeWindowWithNoEventsNeverOpens(t *testing.T) {
	s := TimeWindow(time.Second, 1)
	require.False(t, s.Evaluate(nil))
}
