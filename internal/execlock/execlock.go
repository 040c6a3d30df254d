// Package execlock — общий для процесса lock исполнения кода обратных вызовов.
//
// Lock эмулирует интерпретаторный lock хоста: движок захватывает его перед каждым
// вызовом колбэка, а фоновый код держит его всё время работы. Пока держатель не
// отпустит lock, колбэк движка не выполнится. Поэтому любое ожидание, зависящее от
// колбэков, обязано идти через Sleep, который отпускает lock на время сна.
package execlock

import (
	"runtime"
	"sync"
	"time"
)

// DefaultSwitchInterval — через сколько удержания Checkpoint отдаёт lock другим.
const DefaultSwitchInterval = 5 * time.Millisecond

// Sleeper — точка добровольной уступки исполнения.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc адаптирует функцию к Sleeper.
type SleepFunc func(d time.Duration)

// Sleep вызывает f(d).
func (f SleepFunc) Sleep(d time.Duration) { f(d) }

// System — обычный time.Sleep, когда общего lock нет.
var System Sleeper = SleepFunc(time.Sleep)

// Lock — общий lock исполнения. Нулевое значение готово к работе.
//
// Sleep и Checkpoint можно вызывать только держателю lock.
type Lock struct {
	mu             sync.Mutex
	acquiredAt     time.Time
	SwitchInterval time.Duration
}

// New создаёт Lock с заданным интервалом переключения (0 — DefaultSwitchInterval).
func New(switchInterval time.Duration) *Lock {
	return &Lock{SwitchInterval: switchInterval}
}

// Acquire блокируется до захвата lock.
func (l *Lock) Acquire() {
	l.mu.Lock()
	l.acquiredAt = time.Now()
}

// Release отпускает lock.
func (l *Lock) Release() {
	l.mu.Unlock()
}

// Do выполняет fn под lock.
func (l *Lock) Do(fn func()) {
	l.Acquire()
	defer l.Release()
	fn()
}

// Sleep отпускает lock, спит d и снова захватывает lock.
func (l *Lock) Sleep(d time.Duration) {
	l.Release()
	if d > 0 {
		time.Sleep(d)
	} else {
		runtime.Gosched()
	}
	l.Acquire()
}

// Checkpoint отдаёт lock ожидающим, если он удерживается дольше SwitchInterval.
// Вызывается из длинных вычислений держателя.
func (l *Lock) Checkpoint() {
	iv := l.SwitchInterval
	if iv <= 0 {
		iv = DefaultSwitchInterval
	}
	if time.Since(l.acquiredAt) < iv {
		return
	}
	l.Sleep(0)
}
