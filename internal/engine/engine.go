// Package engine — контракт движка последовательностей импульсов.
//
// Движок владеет собственным потоком (горутиной) и на границах импульсов вызывает
// колбэки: PulseStart на фронте, PulseEnd на спаде и, если зарегистрирован,
// TrainEnd после последнего импульса серии. Внутри серии PulseStart всегда
// предшествует своему PulseEnd, TrainEnd идёт после последнего PulseEnd.
// Между перекрывающимися сериями (DoTasks) порядок задаёт только движок.
package engine

import (
	"errors"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

var (
	// ErrTaskCreation — движок отказал в создании задачи (например, исчерпан лимит).
	ErrTaskCreation = errors.New("engine: task creation failed")
	// ErrTaskClosed — операция над освобождённой задачей.
	ErrTaskClosed = errors.New("engine: task closed")
)

// PulseHooks — колбэки импульса, вызываются в потоке движка и должны быстро возвращаться.
type PulseHooks interface {
	PulseStart()
	PulseEnd()
}

// EndHook — колбэк окончания серии.
type EndHook interface {
	TrainEnd(info EndInfo)
}

// EndMode — какие поля EndInfo заполняются.
type EndMode int

const (
	EndFreqMode  EndMode = iota // частота, скважность, длительность серии
	EndPulseMode                // период, длительность импульса, число импульсов
)

func (m EndMode) String() string {
	switch m {
	case EndFreqMode:
		return "frequency"
	case EndPulseMode:
		return "pulse"
	default:
		return "unknown"
	}
}

// EndInfo — эффективные параметры завершившейся серии.
type EndInfo struct {
	Mode EndMode

	// EndPulseMode
	Delay    time.Duration
	Duration time.Duration
	Count    int

	// EndFreqMode
	FrequencyHz   float64
	DutyCycle     float64
	TrainDuration time.Duration

	// Requested — после этой серии в очереди остались запрошенные серии.
	Requested bool
}

// NewEndInfo заполняет EndInfo по параметрам серии в единицах режима.
func NewEndInfo(mode EndMode, p pulse.Params, requested bool) EndInfo {
	info := EndInfo{Mode: mode, Requested: requested}
	switch mode {
	case EndFreqMode:
		info.FrequencyHz = p.Frequency()
		info.DutyCycle = p.DutyCycle()
		info.TrainDuration = p.TrainDuration()
	default:
		info.Delay = p.Delay()
		info.Duration = p.Duration()
		info.Count = p.Count
	}
	return info
}

// Engine создаёт задачи.
type Engine interface {
	// NewTask создаёт задачу с колбэками hooks и параметрами p.
	// Ошибка оборачивает ErrTaskCreation.
	NewTask(hooks PulseHooks, p pulse.Params) (Task, error)
}

// Task — непрозрачный дескриптор задачи движка.
type Task interface {
	ID() string

	// DoTask ставит в очередь одну серию; DoTasks — n серий подряд. Не блокируют.
	DoTask() error
	DoTasks(n int) error
	// IsBusy — есть ли выполняемая или ожидающая серия.
	IsBusy() bool

	Params() pulse.Params
	PulseDelay() int64
	PulseDuration() int64
	PulseNumber() int

	ModDelay(us int64) error
	ModDur(us int64) error
	ModTrainLength(n int) error

	// SetEndFunc заменяет регистрацию колбэка окончания серии; UnsetEndFunc снимает её.
	SetEndFunc(h EndHook, mode EndMode, enable bool) error
	UnsetEndFunc() error

	// Close освобождает задачу, не дожидаясь остановки потока; Done закрывается по её завершении.
	Close() error
	Done() <-chan struct{}
}
