package soft

import (
	"sync"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

type registration struct {
	hook    engine.EndHook
	mode    engine.EndMode
	enabled bool
}

// Task — задача программного движка.
//
// Параметры перечитываются перед каждым импульсом: изменения через Mod* во время
// серии вступают в силу со следующего импульса (в том числе число импульсов).
type Task struct {
	id    string
	eng   *Engine
	hooks engine.PulseHooks

	mu      sync.Mutex
	params  pulse.Params
	reg     registration
	pending int
	busy    bool
	closed  bool

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	w *waiter
}

var _ engine.Task = (*Task)(nil)

func newTask(e *Engine, id string, hooks engine.PulseHooks, p pulse.Params) *Task {
	quit := make(chan struct{})
	return &Task{
		id:     id,
		eng:    e,
		hooks:  hooks,
		params: p,
		wake:   make(chan struct{}, 1),
		quit:   quit,
		done:   make(chan struct{}),
		w:      newWaiter(quit, e.spinLead),
	}
}

// ID возвращает идентификатор задачи.
func (t *Task) ID() string { return t.id }

// DoTask ставит в очередь одну серию.
func (t *Task) DoTask() error {
	return t.DoTasks(1)
}

// DoTasks ставит в очередь n серий подряд.
func (t *Task) DoTasks(n int) error {
	if n <= 0 {
		return &pulse.ParamError{Field: "trains", Value: n, Reason: "must be > 0"}
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return engine.ErrTaskClosed
	}
	t.pending += n
	t.busy = true
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

// IsBusy — идёт или ожидает серия. Сбрасывается только после TrainEnd последней серии.
func (t *Task) IsBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy && !t.closed
}

// Params возвращает текущие параметры.
func (t *Task) Params() pulse.Params {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params
}

func (t *Task) PulseDelay() int64    { return t.Params().DelayUs }
func (t *Task) PulseDuration() int64 { return t.Params().DurationUs }
func (t *Task) PulseNumber() int     { return t.Params().Count }

// ModDelay меняет период импульса (мкс).
func (t *Task) ModDelay(us int64) error {
	return t.modify(func(p *pulse.Params) { p.DelayUs = us })
}

// ModDur меняет длительность импульса (мкс).
func (t *Task) ModDur(us int64) error {
	return t.modify(func(p *pulse.Params) { p.DurationUs = us })
}

// ModTrainLength меняет число импульсов в серии.
func (t *Task) ModTrainLength(n int) error {
	return t.modify(func(p *pulse.Params) { p.Count = n })
}

func (t *Task) modify(fn func(p *pulse.Params)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return engine.ErrTaskClosed
	}
	p := t.params
	fn(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	t.params = p
	return nil
}

// SetEndFunc заменяет регистрацию колбэка окончания серии.
func (t *Task) SetEndFunc(h engine.EndHook, mode engine.EndMode, enable bool) error {
	if mode != engine.EndFreqMode && mode != engine.EndPulseMode {
		return &pulse.ParamError{Field: "end_mode", Value: int(mode), Reason: "unknown end mode"}
	}
	if h == nil && enable {
		return &pulse.ParamError{Field: "end_hook", Reason: "nil hook"}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return engine.ErrTaskClosed
	}
	t.reg = registration{hook: h, mode: mode, enabled: enable}
	return nil
}

// UnsetEndFunc снимает регистрацию; серии, начатые после вызова, TrainEnd не получат.
func (t *Task) UnsetEndFunc() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return engine.ErrTaskClosed
	}
	t.reg = registration{}
	return nil
}

// Close останавливает поток задачи. Не блокируется; окончание — по Done().
func (t *Task) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.quit)
		logger.Debug("engine: задача %s закрывается", t.id)
	})
	return nil
}

// Done закрывается, когда поток задачи завершился.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) run() {
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.pending = 0
		t.mu.Unlock()
		t.eng.release()
		close(t.done)
	}()
	for {
		select {
		case <-t.quit:
			return
		case <-t.wake:
		}
		for {
			t.mu.Lock()
			if t.pending == 0 {
				t.busy = false
				t.mu.Unlock()
				break
			}
			t.pending--
			t.mu.Unlock()
			if !t.runTrain() {
				return
			}
		}
	}
}

// runTrain выполняет одну серию; false — задачу закрыли посреди серии.
func (t *Task) runTrain() bool {
	next := time.Now()
	for i := 0; ; i++ {
		p := t.Params()
		if p.Count > 0 && i >= p.Count {
			break
		}
		rise := next
		t.dispatch("pulse-start", t.hooks.PulseStart)
		if !t.w.until(rise.Add(p.Duration()), p.Accuracy) {
			return false
		}
		t.dispatch("pulse-end", t.hooks.PulseEnd)
		next = rise.Add(p.Delay())
		if !t.w.until(next, p.Accuracy) {
			return false
		}
		// Колбэки затянулись дольше периода — не догоняем, отсчитываем от текущего момента.
		if now := time.Now(); now.Sub(next) > p.Delay() {
			next = now
		}
	}

	t.mu.Lock()
	reg := t.reg
	requested := t.pending > 0
	p := t.params
	t.mu.Unlock()
	if reg.enabled && reg.hook != nil {
		info := engine.NewEndInfo(reg.mode, p, requested)
		t.dispatch("train-end", func() { reg.hook.TrainEnd(info) })
	}
	return true
}

// dispatch вызывает колбэк под общим lock исполнения; паника колбэка не роняет поток.
func (t *Task) dispatch(name string, fn func()) {
	if lk := t.eng.lock; lk != nil {
		lk.Acquire()
		defer lk.Release()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("engine: задача %s, колбэк %s: panic: %v", t.id, name, r)
		}
	}()
	fn()
}
