package greeter

import (
	"fmt"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
)

var (
	_ engine.PulseHooks = (*Greeter)(nil)
	_ engine.EndHook    = (*Greeter)(nil)
)

// PulseStart — фронт импульса. Счётчик не меняет.
func (g *Greeter) PulseStart() {
	g.mutex.Do(g.sleeper, func() {
		n := g.nTimes.Load()
		if n == 0 {
			fmt.Fprintf(g.out, "Hello from %s\n", g.name)
			return
		}
		fmt.Fprintf(g.out, "Hello for the %s time from %s\n", ordinal(n+1), g.name)
	})
}

// PulseEnd — спад импульса: прощается и увеличивает счётчик ровно на один.
func (g *Greeter) PulseEnd() {
	g.mutex.Do(g.sleeper, func() {
		n := g.nTimes.Load()
		if n == 0 {
			fmt.Fprintf(g.out, "Goodbye from %s\n", g.name)
		} else {
			fmt.Fprintf(g.out, "Goodbye for the %s time from %s\n", ordinal(n+1), g.name)
		}
		g.nTimes.Add(1)
	})
}

// TrainEnd — окончание серии (если включено TurnOnEndFunc).
func (g *Greeter) TrainEnd(info engine.EndInfo) {
	g.mutex.Do(g.sleeper, func() {
		fmt.Fprintf(g.out, "At the end of this train, do Task = %v\n", info.Requested)
	})
	switch info.Mode {
	case engine.EndFreqMode:
		logger.Debug("greeter %q: серия окончена: %.3f Hz, duty %.3f, %v", g.name, info.FrequencyHz, info.DutyCycle, info.TrainDuration)
	default:
		logger.Debug("greeter %q: серия окончена: delay %v, duration %v, %d импульсов", g.name, info.Delay, info.Duration, info.Count)
	}
}

func ordinal(n int64) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
