// pt-greeter — обработчики на границах импульсов периодической серии, которую
// генерирует программный движок в отдельном потоке.
//
// Использование:
//
//	pt-greeter run                      — демонстрационный прогон (три серии 2 Гц)
//	pt-greeter translate --freq 2 --duty 0.5 --train 3s
//	pt-greeter timepulse -p /dev/ttyACM0 — перенести серию на time pulse приёмника u-blox
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/cli"
)

func main() {
	// SIGINT/SIGTERM отменяют контекст: run останавливает серии и печатает итог.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pt-greeter: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
