package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepReturnsTrueWhenDurationElapses(t *testing.T) {
	completed := Sleep(context.Background(), 5*time.Millisecond)
	require.True(t, completed)
}

func TestSleepReturnsFalseWhenContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completed := Sleep(ctx, time.Second)
	require.False(t, completed)
}

func TestSleepReturnsFalseWhenCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	completed := Sleep(ctx, time.Second)
	require.False(t, completed)
}

func TestSleepWithZeroDurationChecksContextOnly(t *testing.T) {
	require.True(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, Sleep(ctx, 0))
}
