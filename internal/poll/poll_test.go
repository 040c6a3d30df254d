package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
)

func TestUntil_NotBusy(t *testing.T) {
	var sleeps int
	s := execlock.SleepFunc(func(time.Duration) { sleeps++ })
	got := Until(func() bool { return false }, time.Second, 10*time.Millisecond, s)
	assert.False(t, got)
	assert.Zero(t, sleeps, "без занятости спать не нужно")
}

func TestUntil_ClearsBeforeTimeout(t *testing.T) {
	var calls atomic.Int32
	busy := func() bool { return calls.Add(1) < 4 }
	got := Until(busy, 5*time.Second, time.Millisecond, execlock.System)
	assert.False(t, got)
}

func TestUntil_TimeoutBound(t *testing.T) {
	const timeout = 60 * time.Millisecond
	const interval = 25 * time.Millisecond

	start := time.Now()
	got := Until(func() bool { return true }, timeout, interval, execlock.System)
	elapsed := time.Since(start)

	assert.True(t, got, "по истечении таймаута предикат остаётся true")
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+interval+50*time.Millisecond)
}

func TestUntil_ZeroTimeout(t *testing.T) {
	var sleeps int
	s := execlock.SleepFunc(func(time.Duration) { sleeps++ })
	assert.True(t, Until(func() bool { return true }, 0, time.Millisecond, s))
	assert.Zero(t, sleeps)
}

func TestUntil_SleepNeverExceedsInterval(t *testing.T) {
	var longest time.Duration
	s := execlock.SleepFunc(func(d time.Duration) {
		if d > longest {
			longest = d
		}
		time.Sleep(d)
	})
	Until(func() bool { return true }, 30*time.Millisecond, 7*time.Millisecond, s)
	assert.LessOrEqual(t, longest, 7*time.Millisecond)
}

func TestUntilContext_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	got := UntilContext(ctx, func() bool { return true }, 5*time.Millisecond, execlock.System)
	assert.True(t, got)
	assert.Error(t, ctx.Err())
}
