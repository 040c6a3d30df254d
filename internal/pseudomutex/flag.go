// Package pseudomutex — кооперативное взаимоисключение на общем флаге.
//
// В отличие от настоящего мьютекса, ожидающий не блокируется: он опрашивает флаг и
// между проверками спит через execlock.Sleeper, отпуская общий lock исполнения.
// Блокирующий мьютекс здесь недопустим: держатель общего lock, вставший на нём,
// не даст движку вызвать колбэк, который освободил бы флаг.
//
// В режиме по умолчанию проверка и установка флага — две отдельные операции.
// Два претендента могут одновременно увидеть 0 и оба войти в секцию. Это известное
// и принятое окно гонки: защищаемые операции (печать, инкремент счётчика одного
// экземпляра) при наложении портят только порядок вывода. Режим Strict закрывает
// окно через CAS и меняет поведение относительно исходного протокола.
package pseudomutex

import (
	"sync/atomic"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
)

// DefaultInterval — пауза между проверками занятого флага.
const DefaultInterval = 10 * time.Millisecond

// Flag — общий флаг секции, значение 0 или 1. Нулевое значение готово к работе.
type Flag struct {
	// Interval — пауза между проверками; 0 — DefaultInterval.
	Interval time.Duration
	// Strict включает атомарный захват (CompareAndSwap) без окна гонки.
	Strict bool

	v atomic.Int32

	// afterCheck вызывается между проверкой и установкой (только для тестов).
	afterCheck func()
}

// Acquire ждёт освобождения флага, уступая исполнение через s, и занимает его.
func (f *Flag) Acquire(s execlock.Sleeper) {
	iv := f.Interval
	if iv <= 0 {
		iv = DefaultInterval
	}
	if f.Strict {
		for !f.v.CompareAndSwap(0, 1) {
			s.Sleep(iv)
		}
		return
	}
	for f.v.Load() == 1 {
		s.Sleep(iv)
	}
	if f.afterCheck != nil {
		f.afterCheck()
	}
	f.v.Store(1)
}

// Release освобождает флаг.
func (f *Flag) Release() {
	f.v.Store(0)
}

// Held сообщает, занят ли флаг сейчас.
func (f *Flag) Held() bool {
	return f.v.Load() == 1
}

// Do выполняет fn внутри секции; флаг освобождается на любом выходе, в том числе при панике.
func (f *Flag) Do(s execlock.Sleeper, fn func()) {
	f.Acquire(s)
	defer f.Release()
	fn()
}
