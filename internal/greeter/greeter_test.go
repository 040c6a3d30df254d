package greeter

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine/soft"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pseudomutex"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

// syncBuffer — bytes.Buffer, безопасный для записи из потока движка.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newTestGreeter(t *testing.T, eng engine.Engine, spec pulse.Spec, opts ...Option) (*Greeter, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	base := []Option{
		WithOutput(out),
		WithMutex(&pseudomutex.Flag{Interval: time.Millisecond}),
		WithWaitInterval(time.Millisecond),
	}
	g, err := New(eng, spec, pulse.Sleeps, "tester", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, out
}

// fastSpec: 200 Hz, duty 0.5, 30 ms → период 5 мс, импульс 2.5 мс, 6 импульсов.
var fastSpec = pulse.ByFrequency{FrequencyHz: 200, DutyCycle: 0.5, TrainDuration: 30 * time.Millisecond}

func TestGreeter_CountsOneTrain(t *testing.T) {
	g, out := newTestGreeter(t, soft.New(), fastSpec)

	assert.Equal(t, 5*time.Millisecond, g.GoodbyeTime())
	assert.Equal(t, 2500*time.Microsecond, g.HelloTime())
	assert.Equal(t, 6, g.NumGreets())

	require.NoError(t, g.Greet())
	assert.False(t, g.WaitGreeting(5*time.Second))
	assert.False(t, g.IsGreeting())
	assert.Equal(t, int64(6), g.NumTimes())
	assert.Len(t, out.lines(), 12)
}

func TestGreeter_GreetManyCounts(t *testing.T) {
	g, _ := newTestGreeter(t, soft.New(), fastSpec)

	require.NoError(t, g.GreetMany(3))
	assert.True(t, g.IsGreeting())
	assert.False(t, g.WaitGreeting(5*time.Second))
	assert.Equal(t, int64(18), g.NumTimes())

	require.NoError(t, g.Greet())
	assert.False(t, g.WaitGreeting(5*time.Second))
	assert.Equal(t, int64(24), g.NumTimes(), "счётчик не сбрасывается между сериями")
}

func TestGreeter_Output(t *testing.T) {
	spec := pulse.ByPulse{Delay: 3 * time.Millisecond, Duration: time.Millisecond, Count: 3}
	g, out := newTestGreeter(t, soft.New(), spec)

	require.NoError(t, g.TurnOnEndFunc(engine.EndPulseMode))
	require.NoError(t, g.Greet())
	require.False(t, g.WaitGreeting(5*time.Second))

	want := []string{
		"Hello from tester",
		"Goodbye from tester",
		"Hello for the 2nd time from tester",
		"Goodbye for the 2nd time from tester",
		"Hello for the 3rd time from tester",
		"Goodbye for the 3rd time from tester",
		"At the end of this train, do Task = false",
	}
	assert.Equal(t, want, out.lines())
}

func TestGreeter_EndFuncOnOff(t *testing.T) {
	g, out := newTestGreeter(t, soft.New(), fastSpec)
	countEnds := func() int {
		n := 0
		for _, l := range out.lines() {
			if strings.HasPrefix(l, "At the end of this train") {
				n++
			}
		}
		return n
	}

	require.NoError(t, g.TurnOnEndFunc(engine.EndFreqMode))
	require.NoError(t, g.GreetMany(2))
	require.False(t, g.WaitGreeting(5*time.Second))
	assert.Equal(t, 2, countEnds())
	assert.Contains(t, out.lines(), "At the end of this train, do Task = true")

	require.NoError(t, g.TurnOffEndFunc())
	require.NoError(t, g.GreetMany(2))
	require.False(t, g.WaitGreeting(5*time.Second))
	assert.Equal(t, 2, countEnds(), "после TurnOffEndFunc новых вызовов нет")
	assert.Equal(t, int64(24), g.NumTimes())
}

func TestGreeter_ByPulseGetters(t *testing.T) {
	spec := pulse.ByPulse{Delay: 2 * time.Second, Duration: 500 * time.Millisecond, Count: 3}
	g, _ := newTestGreeter(t, soft.New(), spec)

	assert.Equal(t, 2*time.Second, g.GoodbyeTime())
	assert.Equal(t, 500*time.Millisecond, g.HelloTime())
	assert.Equal(t, 3, g.NumGreets())
	assert.Equal(t, "tester", g.Name())
	assert.NotEmpty(t, g.ID())
}

func TestGreeter_Setters(t *testing.T) {
	spec := pulse.ByPulse{Delay: 2 * time.Second, Duration: 500 * time.Millisecond, Count: 3}
	g, _ := newTestGreeter(t, soft.New(), spec)

	require.NoError(t, g.SetGoodbyeTime(time.Second))
	require.NoError(t, g.SetHelloTime(250*time.Millisecond+999*time.Nanosecond))
	require.NoError(t, g.SetNumGreets(7))
	assert.Equal(t, time.Second, g.GoodbyeTime())
	assert.Equal(t, 250*time.Millisecond, g.HelloTime(), "усечение до микросекунд")
	assert.Equal(t, 7, g.NumGreets())

	assert.ErrorIs(t, g.SetHelloTime(2*time.Second), pulse.ErrInvalidParameter)
	assert.ErrorIs(t, g.SetGoodbyeTime(100*time.Millisecond), pulse.ErrInvalidParameter)
	assert.ErrorIs(t, g.SetGoodbyeTime(-time.Second), pulse.ErrInvalidParameter)
	assert.ErrorIs(t, g.SetHelloTime(-time.Second), pulse.ErrInvalidParameter)
	assert.ErrorIs(t, g.SetNumGreets(-1), pulse.ErrInvalidParameter)
	assert.ErrorIs(t, g.GreetMany(0), pulse.ErrInvalidParameter)

	assert.Equal(t, time.Second, g.GoodbyeTime(), "неудачный вызов ничего не меняет")
	assert.Equal(t, 7, g.NumGreets())
}

func TestGreeter_WaitTimeoutBound(t *testing.T) {
	spec := pulse.ByPulse{Delay: time.Second, Duration: 100 * time.Millisecond, Count: 10}
	g, _ := newTestGreeter(t, soft.New(), spec, WithWaitInterval(10*time.Millisecond))

	require.NoError(t, g.Greet())
	start := time.Now()
	busy := g.WaitGreeting(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.True(t, busy)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 50*time.Millisecond+10*time.Millisecond+50*time.Millisecond)

	require.NoError(t, g.Close())
	assert.False(t, g.IsGreeting(), "Close отменяет незавершённые серии")
	assert.ErrorIs(t, g.Greet(), engine.ErrTaskClosed)
}

func TestGreeter_InvalidConstruction(t *testing.T) {
	_, err := New(soft.New(), pulse.ByFrequency{FrequencyHz: 0, DutyCycle: 0.5}, pulse.Sleeps, "bad")
	assert.ErrorIs(t, err, pulse.ErrInvalidParameter)

	_, err = New(soft.New(), pulse.ByFrequency{FrequencyHz: 10, DutyCycle: 1.5}, pulse.Sleeps, "bad")
	assert.ErrorIs(t, err, pulse.ErrInvalidParameter)

	eng := soft.New(soft.WithMaxTasks(1))
	newTestGreeter(t, eng, fastSpec)
	_, err = New(eng, fastSpec, pulse.Sleeps, "second")
	assert.ErrorIs(t, err, engine.ErrTaskCreation)
}

// Основной поток держит lock исполнения всё время; приветствия идут, пока он ждёт.
func TestGreeter_UnderExecLock(t *testing.T) {
	lk := execlock.New(time.Millisecond)
	eng := soft.New(soft.WithExecLock(lk))

	lk.Acquire()
	defer lk.Release()
	g, _ := newTestGreeter(t, eng, fastSpec, WithSleeper(lk))

	require.NoError(t, g.TurnOnEndFunc(engine.EndPulseMode))
	require.NoError(t, g.GreetMany(2))
	assert.False(t, g.WaitGreeting(5*time.Second))
	assert.Equal(t, int64(12), g.NumTimes())
	require.NoError(t, g.Close(), "Close под lock исполнения не блокирует поток задачи")
}

func TestGreeter_FrequencyScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("серия длится 3 секунды")
	}
	spec := pulse.ByFrequency{FrequencyHz: 2, DutyCycle: 0.5, TrainDuration: 3 * time.Second}
	g, _ := newTestGreeter(t, soft.New(), spec, WithWaitInterval(50*time.Millisecond))

	assert.Equal(t, 500*time.Millisecond, g.GoodbyeTime())
	assert.Equal(t, 250*time.Millisecond, g.HelloTime())
	assert.Equal(t, 6, g.NumGreets())

	require.NoError(t, g.Greet())
	assert.False(t, g.WaitGreeting(10*time.Second))
	assert.Equal(t, int64(6), g.NumTimes())
}

func TestOrdinal(t *testing.T) {
	cases := map[int64]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 101: "101st", 111: "111th",
	}
	for n, want := range cases {
		assert.Equal(t, want, ordinal(n), "n=%d", n)
	}
}
