// Package greeting — демонстрационный прогон: серии приветствий идут в потоке движка,
// а основной поток тем временем считает и печатает промежуточные результаты.
// Оба потока печатают через один флаг сериализации вывода.
package greeting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine/soft"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/execlock"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/greeter"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/poll"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pseudomutex"
	"github.com/shiwa/timecard-mini/pt-greeter/pkg/config"
)

// ctxCheckEvery — как часто цикл вычислений проверяет отмену контекста.
const ctxCheckEvery = 1024

// Result — итог прогона.
type Result struct {
	Iterations int64
	Value      float64
	Greets     int64
	Canceled   bool
	Elapsed    time.Duration
}

// Run выполняет прогон до окончания всех серий, отмены ctx или run.wait_timeout.
// Отмена ctx не ошибка: серии останавливаются через Close, Result.Canceled = true.
func Run(ctx context.Context, cfg *config.Config, out io.Writer) (res Result, err error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("config: %w", err)
	}
	spec, err := cfg.Spec()
	if err != nil {
		return Result{}, err
	}
	acc, err := cfg.Accuracy()
	if err != nil {
		return Result{}, err
	}
	endMode, endOn, err := cfg.EndMode()
	if err != nil {
		return Result{}, err
	}

	// Основной поток держит lock исполнения всё время прогона и отдаёт его только
	// в Sleep (флаг, опрос) и в Checkpoint цикла вычислений.
	var sleeper execlock.Sleeper = execlock.System
	var lk *execlock.Lock
	engOpts := []soft.Option{soft.WithMaxTasks(cfg.Engine.MaxTasks)}
	if cfg.Engine.ExecLock {
		lk = execlock.New(cfg.Engine.SwitchInterval)
		sleeper = lk
		engOpts = append(engOpts, soft.WithExecLock(lk))
		lk.Acquire()
		defer lk.Release()
	}

	flag := &pseudomutex.Flag{Interval: cfg.Mutex.PollInterval, Strict: cfg.Mutex.Strict}
	say := func(format string, args ...interface{}) {
		flag.Do(sleeper, func() { fmt.Fprintf(out, format+"\n", args...) })
	}

	g, err := greeter.New(soft.New(engOpts...), spec, acc, cfg.Greeter.Name,
		greeter.WithOutput(out),
		greeter.WithSleeper(sleeper),
		greeter.WithMutex(flag),
		greeter.WithWaitInterval(cfg.Wait.PollInterval),
	)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := g.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		res.Greets = g.NumTimes()
	}()

	say("hello time is %g seconds", g.HelloTime().Seconds())
	say("goodbye time is %g seconds", g.GoodbyeTime().Seconds())
	if endOn {
		if err := g.TurnOnEndFunc(endMode); err != nil {
			return res, err
		}
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, cfg.Run.WaitTimeout)
	defer cancel()
	if err := g.GreetMany(cfg.Run.Trains); err != nil {
		return res, err
	}
	logger.Info("greeting: %q, %d серий, %v", g.Name(), cfg.Run.Trains, g.Params())

	if cfg.Run.Idle {
		poll.UntilContext(runCtx, g.IsGreeting, cfg.Wait.PollInterval, sleeper)
	} else {
		res.Iterations, res.Value = compute(runCtx, g, lk, int64(cfg.Run.ReportEvery), say)
	}
	res.Elapsed = time.Since(start)

	switch {
	case ctx.Err() != nil:
		res.Canceled = true
		logger.Info("greeting: прервано, серии останавливаются")
		return res, nil
	case runCtx.Err() != nil:
		return res, fmt.Errorf("greeting: серии не завершились за %v", cfg.Run.WaitTimeout)
	}
	say("Greeter is finished now. Final result was %g", res.Value)
	return res, nil
}

// compute считает, пока идут серии; каждые every итераций печатает результат.
func compute(ctx context.Context, g *greeter.Greeter, lk *execlock.Lock, every int64, say func(string, ...interface{})) (int64, float64) {
	var result float64
	var i int64
	for ; g.IsGreeting(); i++ {
		if i%ctxCheckEvery == 0 && ctx.Err() != nil {
			break
		}
		result += float64(i) * float64(i) / float64(i+1)
		if i%every == 0 {
			say("result %d = %g", i, result)
		}
		if lk != nil {
			lk.Checkpoint()
		}
	}
	return i, result
}
