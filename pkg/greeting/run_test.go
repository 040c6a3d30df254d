package greeting

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/pt-greeter/pkg/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fastConfig: 200 Hz, duty 0.5, 30 ms → 6 импульсов по 5 мс в серии.
func fastConfig() *config.Config {
	c := config.Default()
	c.Greeter.Name = "runner"
	c.Greeter.FrequencyHz = 200
	c.Greeter.TrainDuration = 30 * time.Millisecond
	c.Run.Trains = 2
	c.Run.ReportEvery = 100_000
	c.Run.WaitTimeout = 10 * time.Second
	c.Mutex.PollInterval = time.Millisecond
	c.Wait.PollInterval = time.Millisecond
	return c
}

func TestRun_WithExecLock(t *testing.T) {
	out := &syncBuffer{}
	res, err := Run(context.Background(), fastConfig(), out)
	require.NoError(t, err)

	assert.Equal(t, int64(12), res.Greets)
	assert.False(t, res.Canceled)
	assert.Positive(t, res.Iterations)

	s := out.String()
	assert.Contains(t, s, "hello time is 0.0025 seconds\n")
	assert.Contains(t, s, "goodbye time is 0.005 seconds\n")
	assert.Contains(t, s, "result 0 = 0\n")
	assert.Contains(t, s, "Hello for the 12th time from runner\n")
	assert.Contains(t, s, "At the end of this train, do Task = true\n")
	assert.Contains(t, s, "At the end of this train, do Task = false\n")
	assert.True(t, strings.HasSuffix(s, fmt.Sprintf("Greeter is finished now. Final result was %g\n", res.Value)))
}

func TestRun_NoExecLockIdle(t *testing.T) {
	c := fastConfig()
	c.Engine.ExecLock = false
	c.Run.Idle = true
	c.Greeter.EndFunc = "off"
	out := &syncBuffer{}

	res, err := Run(context.Background(), c, out)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Greets)
	assert.Zero(t, res.Iterations)
	assert.NotContains(t, out.String(), "At the end of this train")
}

func TestRun_Canceled(t *testing.T) {
	c := fastConfig()
	c.Greeter.Mode = config.ModePulse
	c.Greeter.PulseDelay = time.Second
	c.Greeter.PulseDuration = 100 * time.Millisecond
	c.Greeter.PulseCount = 100

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := Run(ctx, c, &syncBuffer{})
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Less(t, res.Greets, int64(2))
}

func TestRun_WaitTimeout(t *testing.T) {
	c := fastConfig()
	c.Greeter.Mode = config.ModePulse
	c.Greeter.PulseDelay = time.Second
	c.Greeter.PulseDuration = 100 * time.Millisecond
	c.Greeter.PulseCount = 100
	c.Run.WaitTimeout = 50 * time.Millisecond

	res, err := Run(context.Background(), c, &syncBuffer{})
	require.Error(t, err)
	assert.False(t, res.Canceled)
}

func TestRun_InvalidConfig(t *testing.T) {
	c := fastConfig()
	c.Greeter.DutyCycle = 2
	_, err := Run(context.Background(), c, &syncBuffer{})
	assert.Error(t, err)
}
