package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_ZeroMeansUnbounded(t *testing.T) {
	b := New(0)
	require.Nil(t, b)
	require.Equal(t, time.Duration(0), b.Reserve(1_000_000_000))
}

func TestReserve_WithinBudget(t *testing.T) {
	b := New(1000)
	require.NotNil(t, b)
	require.Equal(t, time.Duration(0), b.Reserve(400))
	require.Equal(t, time.Duration(0), b.Reserve(600))
}

func TestReserve_ExceedsBudget_ReturnsWait(t *testing.T) {
	b := New(1000)
	require.Equal(t, time.Duration(0), b.Reserve(1000))

	wait := b.Reserve(1)
	require.Greater(t, wait, time.Duration(0))
	require.LessOrEqual(t, wait, time.Second)
}

func TestReserve_RefillsAfterWindow(t *testing.T) {
	b := New(1000)
	require.Equal(t, time.Duration(0), b.Reserve(1000))
	require.Greater(t, b.Reserve(1), time.Duration(0))

	time.Sleep(1100 * time.Millisecond)
	require.Equal(t, time.Duration(0), b.Reserve(1000))
}

func TestReserve_FullRefillNotAdditive(t *testing.T) {
	b := New(1000)
	// Consume half, then wait a full window: tokens should reset to 1000,
	// not accumulate to 1500.
	require.Equal(t, time.Duration(0), b.Reserve(500))
	time.Sleep(1100 * time.Millisecond)

	require.Equal(t, time.Duration(0), b.Reserve(1000))
	require.Greater(t, b.Reserve(1), time.Duration(0))
}

func TestWait_BlocksUntilTokensAvailable(t *testing.T) {
	b := New(1000)
	require.Equal(t, time.Duration(0), b.Reserve(1000))

	start := time.Now()
	b.Wait(500)
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}

func TestWait_NilBucketNeverBlocks(t *testing.T) {
	var b *Bucket
	start := time.Now()
	b.Wait(1 << 40)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}
