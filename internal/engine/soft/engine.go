// Package soft — программный движок последовательностей импульсов на горутинах.
//
// Каждая задача получает собственную горутину (поток движка). Колбэки вызываются
// под общим lock исполнения, если он задан (WithExecLock): это воспроизводит
// поведение хоста, где вход из нативного потока в код колбэка требует захвата
// интерпретаторного lock.
package soft

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

// DefaultSpinLead — запас активного ожидания для SleepsAndSpins.
const DefaultSpinLead = 200 * time.Microsecond

// Engine — программный движок. Нулевое значение непригодно, используйте New.
type Engine struct {
	lock     *execlock.Lock
	maxTasks int
	spinLead time.Duration

	mu   sync.Mutex
	live int
}

// Option настраивает Engine.
type Option func(*Engine)

// WithExecLock задаёт общий lock исполнения, захватываемый вокруг каждого колбэка.
func WithExecLock(l *execlock.Lock) Option {
	return func(e *Engine) { e.lock = l }
}

// WithMaxTasks ограничивает число одновременно живых задач (0 — без ограничения).
func WithMaxTasks(n int) Option {
	return func(e *Engine) { e.maxTasks = n }
}

// WithSpinLead задаёт запас активного ожидания для SleepsAndSpins.
func WithSpinLead(d time.Duration) Option {
	return func(e *Engine) { e.spinLead = d }
}

// New создаёт движок.
func New(opts ...Option) *Engine {
	e := &Engine{spinLead: DefaultSpinLead}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewTask создаёт задачу и запускает её поток. Серии начнутся только после DoTask/DoTasks.
func (e *Engine) NewTask(hooks engine.PulseHooks, p pulse.Params) (engine.Task, error) {
	if hooks == nil {
		return nil, fmt.Errorf("%w: nil hooks", engine.ErrTaskCreation)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrTaskCreation, err)
	}
	e.mu.Lock()
	if e.maxTasks > 0 && e.live >= e.maxTasks {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: task limit %d reached", engine.ErrTaskCreation, e.maxTasks)
	}
	e.live++
	e.mu.Unlock()

	t := newTask(e, uuid.NewString(), hooks, p)
	go t.run()
	logger.Debug("engine: задача %s создана (%v)", t.id, p)
	return t, nil
}

// Live возвращает число живых задач.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

func (e *Engine) release() {
	e.mu.Lock()
	e.live--
	e.mu.Unlock()
}
