// Package cli — команды pt-greeter на cobra.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/pkg/config"
)

// DefaultConfigPath читается, если --config не задан и файл существует.
const DefaultConfigPath = "pt-greeter.yaml"

// Коды выхода.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // прогон или устройство завершились ошибкой
	ExitCommandError = 2 // неверные флаги или конфиг
)

// ExitError — ошибка с кодом выхода процесса.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func commandError(err error) error {
	return &ExitError{Code: ExitCommandError, Err: err}
}

// GetExitCode извлекает код выхода; обычная ошибка — ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions — глобальные флаги.
type RootOptions struct {
	ConfigPath string
	Quiet      bool
	Verbose    bool
}

// NewRootCommand создаёт корневую команду pt-greeter.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pt-greeter",
		Short: "Pulse-train greeter",
		Long: `pt-greeter вызывает обработчики на фронте и спаде каждого импульса
периодической серии, которую генерирует движок в отдельном потоке.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Quiet && opts.Verbose {
				return commandError(errors.New("--quiet и --verbose взаимоисключающие"))
			}
			logger.Quiet = opts.Quiet
			logger.Verbose = opts.Verbose
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "путь к YAML конфигу (по умолчанию "+DefaultConfigPath+", если есть)")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "меньше вывода")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "отладочный вывод")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewTimepulseCommand(opts))

	return cmd
}

// loadConfig читает конфиг: явный путь обязан существовать, путь по умолчанию — нет.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, commandError(fmt.Errorf("config: %w", err))
	}
	logger.Debug("config: %s", path)
	return cfg, nil
}
