package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 20 * time.Millisecond

func TestStartInvokesImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New()

	require.NoError(t, p.Start(func() { calls.Add(1) }, time.Hour))
	defer p.Stop()

	// synchronous first call, no waiting
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, p.Running())
}

func TestStartRepeats(t *testing.T) {
	var calls atomic.Int32
	p := New()

	require.NoError(t, p.Start(func() { calls.Add(1) }, tick))
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestStartTwiceKeepsOneSchedule(t *testing.T) {
	var first, second atomic.Int32
	p := New()

	require.NoError(t, p.Start(func() { first.Add(1) }, tick))
	require.NoError(t, p.Start(func() { second.Add(1) }, tick))
	defer p.Stop()

	time.Sleep(5 * tick)
	assert.Zero(t, second.Load())

	// one timer at tick cadence over ~5 ticks plus the immediate call
	got := first.Load()
	assert.GreaterOrEqual(t, got, int32(2))
	assert.LessOrEqual(t, got, int32(7))
}

func TestStopPreventsFutureCalls(t *testing.T) {
	var calls atomic.Int32
	p := New()

	require.NoError(t, p.Start(func() { calls.Add(1) }, tick))
	p.Stop()
	assert.False(t, p.Running())

	after := calls.Load()
	time.Sleep(4 * tick)
	assert.Equal(t, after, calls.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	p := New()
	p.Stop()

	require.NoError(t, p.Start(func() {}, tick))
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestRestartFiresImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New()

	require.NoError(t, p.Start(func() { calls.Add(1) }, time.Hour))
	p.Stop()
	require.Equal(t, int32(1), calls.Load())

	require.NoError(t, p.Start(func() { calls.Add(1) }, tick))
	defer p.Stop()
	assert.Equal(t, int32(2), calls.Load())

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, time.Millisecond)
}

func TestInFlightCallCompletesAfterStop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var n atomic.Int32

	p := New()
	require.NoError(t, p.Start(func() {
		if n.Add(1) == 2 {
			close(entered)
			<-release
			finished.Store(true)
		}
	}, tick))

	<-entered
	p.Stop()
	close(release)

	require.Eventually(t, finished.Load, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), n.Load())
}

func TestCallbackMayStopPoller(t *testing.T) {
	p := New()
	var calls atomic.Int32

	require.NoError(t, p.Start(func() {
		if calls.Add(1) == 2 {
			p.Stop()
		}
	}, tick))

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)
	time.Sleep(3 * tick)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidInterval(t *testing.T) {
	p := New()
	assert.Error(t, p.Start(func() {}, 0))
	assert.Error(t, p.Start(func() {}, -time.Second))
	assert.False(t, p.Running())
}

func TestRunStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- Run(ctx, func() { calls.Add(1) }, tick) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	after := calls.Load()
	time.Sleep(4 * tick)
	assert.Equal(t, after, calls.Load())
}
