// Package greeter — фасад над задачей движка: приветствует на фронте импульса,
// прощается на спаде и считает импульсы.
//
// Колбэки вызываются в потоке движка; весь вывод и изменение счётчика идут внутри
// секции общего флага PrintMutex. Фоновый код, печатающий параллельно с серией,
// должен пользоваться тем же флагом и тем же Sleeper.
package greeter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/poll"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pseudomutex"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

// PrintMutex — общий для всех Greeter флаг сериализации вывода.
var PrintMutex = &pseudomutex.Flag{}

// DefaultCloseTimeout — сколько Close ждёт остановки потока задачи.
const DefaultCloseTimeout = 5 * time.Second

// Greeter владеет задачей движка до Close.
type Greeter struct {
	name string
	task engine.Task

	out          io.Writer
	sleeper      execlock.Sleeper
	mutex        *pseudomutex.Flag
	waitInterval time.Duration
	closeTimeout time.Duration

	nTimes atomic.Int64
}

// Option настраивает Greeter.
type Option func(*Greeter)

// WithOutput задаёт, куда печатать приветствия (по умолчанию os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(g *Greeter) { g.out = w }
}

// WithSleeper задаёт точку уступки исполнения. При общем lock исполнения это сам
// *execlock.Lock, и все вызовы Greeter должны идти под ним.
func WithSleeper(s execlock.Sleeper) Option {
	return func(g *Greeter) { g.sleeper = s }
}

// WithMutex заменяет общий флаг PrintMutex.
func WithMutex(f *pseudomutex.Flag) Option {
	return func(g *Greeter) { g.mutex = f }
}

// WithWaitInterval задаёт паузу опроса в WaitGreeting и Close.
func WithWaitInterval(d time.Duration) Option {
	return func(g *Greeter) { g.waitInterval = d }
}

// WithCloseTimeout задаёт, сколько Close ждёт остановки потока задачи.
func WithCloseTimeout(d time.Duration) Option {
	return func(g *Greeter) { g.closeTimeout = d }
}

// New переводит spec в параметры движка и создаёт задачу.
// Ошибки параметров оборачивают pulse.ErrInvalidParameter, отказ движка — engine.ErrTaskCreation.
func New(eng engine.Engine, spec pulse.Spec, acc pulse.Accuracy, name string, opts ...Option) (*Greeter, error) {
	p, err := pulse.Translate(spec, acc)
	if err != nil {
		return nil, err
	}
	g := &Greeter{
		name:         name,
		out:          os.Stdout,
		sleeper:      execlock.System,
		mutex:        PrintMutex,
		waitInterval: poll.DefaultInterval,
		closeTimeout: DefaultCloseTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	task, err := eng.NewTask(g, p)
	if err != nil {
		if errors.Is(err, engine.ErrTaskCreation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", engine.ErrTaskCreation, err)
	}
	g.task = task
	logger.Info("greeter %q: задача %s (%v)", name, task.ID(), p)
	return g, nil
}

// Name возвращает имя.
func (g *Greeter) Name() string { return g.name }

// ID возвращает идентификатор задачи движка.
func (g *Greeter) ID() string { return g.task.ID() }

// NumTimes возвращает число завершённых импульсов.
func (g *Greeter) NumTimes() int64 { return g.nTimes.Load() }

// Params возвращает текущие параметры задачи.
func (g *Greeter) Params() pulse.Params { return g.task.Params() }

// Greet запрашивает одну серию и сразу возвращается.
func (g *Greeter) Greet() error {
	return g.task.DoTask()
}

// GreetMany запрашивает n серий подряд и сразу возвращается.
func (g *Greeter) GreetMany(n int) error {
	return g.task.DoTasks(n)
}

// IsGreeting сообщает, занят ли движок.
func (g *Greeter) IsGreeting() bool {
	return g.task.IsBusy()
}

// WaitGreeting ждёт окончания серий не дольше timeout, отпуская исполнение между
// проверками. Возвращает true, если движок всё ещё занят.
func (g *Greeter) WaitGreeting(timeout time.Duration) bool {
	return poll.Until(g.task.IsBusy, timeout, g.waitInterval, g.sleeper)
}

// GoodbyeTime — период импульса.
func (g *Greeter) GoodbyeTime() time.Duration {
	return time.Duration(g.task.PulseDelay()) * time.Microsecond
}

// HelloTime — длительность импульса.
func (g *Greeter) HelloTime() time.Duration {
	return time.Duration(g.task.PulseDuration()) * time.Microsecond
}

// NumGreets — число импульсов в серии.
func (g *Greeter) NumGreets() int {
	return g.task.PulseNumber()
}

// SetNumGreets меняет число импульсов в серии.
func (g *Greeter) SetNumGreets(n int) error {
	p := g.task.Params()
	p.Count = n
	if err := p.Validate(); err != nil {
		return err
	}
	return g.task.ModTrainLength(n)
}

// SetGoodbyeTime меняет период импульса (усечение до микросекунд).
func (g *Greeter) SetGoodbyeTime(d time.Duration) error {
	if d < 0 {
		return &pulse.ParamError{Field: "delay", Value: d, Reason: "must be >= 0"}
	}
	p := g.task.Params()
	p.DelayUs = d.Microseconds()
	if err := p.Validate(); err != nil {
		return err
	}
	return g.task.ModDelay(p.DelayUs)
}

// SetHelloTime меняет длительность импульса (усечение до микросекунд).
func (g *Greeter) SetHelloTime(d time.Duration) error {
	if d < 0 {
		return &pulse.ParamError{Field: "duration", Value: d, Reason: "must be >= 0"}
	}
	p := g.task.Params()
	p.DurationUs = d.Microseconds()
	if err := p.Validate(); err != nil {
		return err
	}
	return g.task.ModDur(p.DurationUs)
}

// TurnOnEndFunc регистрирует TrainEnd; mode выбирает единицы параметров.
// Регистрация меняется внутри секции флага.
func (g *Greeter) TurnOnEndFunc(mode engine.EndMode) error {
	var err error
	g.mutex.Do(g.sleeper, func() {
		err = g.task.SetEndFunc(g, mode, true)
	})
	return err
}

// TurnOffEndFunc снимает регистрацию TrainEnd.
func (g *Greeter) TurnOffEndFunc() error {
	var err error
	g.mutex.Do(g.sleeper, func() {
		err = g.task.UnsetEndFunc()
	})
	return err
}

// Close освобождает задачу и ждёт остановки её потока через опрос.
// Незавершённые серии отменяются; другого способа отмены нет.
func (g *Greeter) Close() error {
	if err := g.task.Close(); err != nil {
		return err
	}
	running := func() bool {
		select {
		case <-g.task.Done():
			return false
		default:
			return true
		}
	}
	if poll.Until(running, g.closeTimeout, g.waitInterval, g.sleeper) {
		return fmt.Errorf("greeter %q: задача %s не остановилась за %v", g.name, g.task.ID(), g.closeTimeout)
	}
	logger.Debug("greeter %q: задача %s освобождена, импульсов %d", g.name, g.task.ID(), g.NumTimes())
	return nil
}
