// Package logger — единый вывод логов pt-greeter с префиксом и учётом quiet/verbose.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Quiet при true отключает информационные сообщения (Info, Debug); Error выводится всегда.
var Quiet bool

// Verbose при true включает отладочные сообщения (Debug).
var Verbose bool

var base atomic.Pointer[slog.Logger]

func init() {
	base.Store(newLogger(os.Stderr))
}

func newLogger(w io.Writer) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h).With("app", "pt-greeter")
}

// SetOutput перенаправляет логи (используется в тестах и CLI).
func SetOutput(w io.Writer) {
	base.Store(newLogger(w))
}

// Info выводит сообщение, если Quiet == false.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	base.Load().Info(fmt.Sprintf(format, args...))
}

// Debug выводит сообщение только при Verbose и без Quiet.
func Debug(format string, args ...interface{}) {
	if Quiet || !Verbose {
		return
	}
	base.Load().Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Error выводит сообщение об ошибке всегда.
func Error(format string, args ...interface{}) {
	base.Load().Error(fmt.Sprintf(format, args...))
}
