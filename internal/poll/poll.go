// Package poll — ограниченное по времени ожидание через опрос предиката.
//
// Единственный допустимый способ для фонового кода ждать состояние, которое меняет
// поток движка: между проверками Sleeper отпускает общий lock исполнения.
package poll

import (
	"context"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
)

// DefaultInterval — пауза между проверками по умолчанию.
const DefaultInterval = 50 * time.Millisecond

// Until опрашивает busy, пока он true и не истёк timeout; между проверками спит
// не дольше interval. Возвращает значение busy после ожидания (true — истёк timeout).
// Возврат происходит не позже timeout + interval.
func Until(busy func() bool, timeout, interval time.Duration, s execlock.Sleeper) bool {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)
	for busy() {
		rem := time.Until(deadline)
		if rem <= 0 {
			break
		}
		if rem > interval {
			rem = interval
		}
		s.Sleep(rem)
	}
	return busy()
}

// UntilContext как Until, но без собственного таймаута: ждёт до отмены ctx.
func UntilContext(ctx context.Context, busy func() bool, interval time.Duration, s execlock.Sleeper) bool {
	if interval <= 0 {
		interval = DefaultInterval
	}
	for busy() {
		if ctx.Err() != nil {
			break
		}
		s.Sleep(interval)
	}
	return busy()
}
