package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialReturnsErrorIfMinGreaterThanMax(t *testing.T) {
	_, err := NewExponential(Exponential{
		Min:    100 * time.Millisecond,
		Max:    10 * time.Millisecond,
		Factor: 2,
	})

	require.Error(t, err)
}

func TestExponentialReturnsDefaultMinOnFirstAttempt(t *testing.T) {
	e, err := NewExponential(Exponential{})
	require.NoError(t, err)

	require.Equal(t, int64(100), e.DelayMs(1))
}

func TestExponentialIsPureAcrossRepeatedCalls(t *testing.T) {
	e, err := NewExponential(Exponential{Min: 200 * time.Millisecond, Max: 10 * time.Second, Factor: 2})
	require.NoError(t, err)

	require.Equal(t, int64(200), e.DelayMs(1))
	require.Equal(t, int64(400), e.DelayMs(2))
	require.Equal(t, int64(800), e.DelayMs(3))
	require.Equal(t, int64(1600), e.DelayMs(4))

	// Calling again for the same attempt returns the same value: DelayMs is
	// a pure function of attempt, not a stateful counter.
	require.Equal(t, int64(200), e.DelayMs(1))
}

func TestExponentialDoesNotExceedMax(t *testing.T) {
	e, err := NewExponential(Exponential{Min: 200 * time.Millisecond, Max: 400 * time.Millisecond, Factor: 2})
	require.NoError(t, err)

	require.Equal(t, int64(200), e.DelayMs(1))
	require.Equal(t, int64(400), e.DelayMs(2))
	require.Equal(t, int64(400), e.DelayMs(3))
}

func TestExponentialClampsAttemptBelowOne(t *testing.T) {
	e, err := NewExponential(Exponential{Min: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2})
	require.NoError(t, err)

	require.Equal(t, e.DelayMs(1), e.DelayMs(0))
	require.Equal(t, e.DelayMs(1), e.DelayMs(-5))
}

func TestFixedDelayMsReturnsDefault(t *testing.T) {
	f := &Fixed{}
	require.Equal(t, int64(300), f.DelayMs(1))
}

func TestFixedDelayMsReturnsUnchangedValue(t *testing.T) {
	f := &Fixed{Delay: 100 * time.Millisecond}
	require.Equal(t, int64(100), f.DelayMs(1))
	require.Equal(t, int64(100), f.DelayMs(7))
}
