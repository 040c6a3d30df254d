package soft

import (
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/servo"
)

const (
	// preciseThreshold — остаток ожидания, который досыпается через preciseSleep.
	preciseThreshold = 2 * time.Millisecond
	// spinMargin — запас сверх измеренного пересыпания для SleepsAndOrSpins.
	spinMargin = 20 * time.Microsecond
	maxLead    = 2 * time.Millisecond
)

// waiter ждёт границ импульсов в выбранном режиме точности.
type waiter struct {
	quit      <-chan struct{}
	fixedLead time.Duration

	// адаптивный запас для SleepsAndOrSpins
	lead    time.Duration
	algo    servo.Algorithm
	lastObs time.Time
}

func newWaiter(quit <-chan struct{}, fixedLead time.Duration) *waiter {
	return &waiter{
		quit:      quit,
		fixedLead: fixedLead,
		lead:      fixedLead,
		algo:      servo.NewPI(0, 0),
	}
}

// until ждёт момента deadline; false — задачу закрыли.
func (w *waiter) until(deadline time.Time, acc pulse.Accuracy) bool {
	select {
	case <-w.quit:
		return false
	default:
	}
	var lead time.Duration
	switch acc {
	case pulse.SleepsAndSpins:
		lead = w.fixedLead
	case pulse.SleepsAndOrSpins:
		lead = w.lead
	}
	wakeAt := deadline.Add(-lead)
	if !w.sleepUntil(wakeAt) {
		return false
	}
	if acc == pulse.Sleeps {
		return true
	}
	if acc == pulse.SleepsAndOrSpins {
		w.observe(time.Since(wakeAt))
	}
	for time.Now().Before(deadline) {
	}
	return true
}

// sleepUntil спит до t: крупную часть — таймером с проверкой quit, остаток — preciseSleep.
func (w *waiter) sleepUntil(t time.Time) bool {
	for {
		rem := time.Until(t)
		if rem <= 0 {
			return true
		}
		if rem <= preciseThreshold {
			preciseSleep(rem)
			return true
		}
		timer := time.NewTimer(rem - preciseThreshold)
		select {
		case <-w.quit:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// observe подстраивает запас по измеренному пересыпанию (PI-регулятор).
func (w *waiter) observe(overshoot time.Duration) {
	now := time.Now()
	dt := time.Millisecond
	if !w.lastObs.IsZero() {
		dt = now.Sub(w.lastObs)
	}
	w.lastObs = now

	target := overshoot + spinMargin
	adj := w.algo.Update(float64(target-w.lead), dt)
	w.lead += time.Duration(adj)
	if w.lead < 0 {
		w.lead = 0
	} else if w.lead > maxLead {
		w.lead = maxLead
	}
}
