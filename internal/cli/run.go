package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/pkg/greeting"
)

type runOptions struct {
	trains      int
	name        string
	strictMutex bool
	idle        bool
	noExecLock  bool
}

// NewRunCommand создаёт команду run — демонстрационный прогон.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Запустить серии приветствий и вычисления в основном потоке",
		Long: `Создаёт greeter по конфигу, запускает run.trains серий и, пока они идут,
считает в основном потоке, печатая промежуточные результаты. SIGINT останавливает серии.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("trains") {
				cfg.Run.Trains = opts.trains
			}
			if flags.Changed("name") {
				cfg.Greeter.Name = opts.name
			}
			if flags.Changed("strict-mutex") {
				cfg.Mutex.Strict = opts.strictMutex
			}
			if flags.Changed("idle") {
				cfg.Run.Idle = opts.idle
			}
			if opts.noExecLock {
				cfg.Engine.ExecLock = false
			}
			if err := cfg.Validate(); err != nil {
				return commandError(err)
			}

			res, err := greeting.Run(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			logger.Info("run: импульсов %d, итераций %d, %v, прервано=%v",
				res.Greets, res.Iterations, res.Elapsed.Round(time.Millisecond), res.Canceled)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.trains, "trains", "n", 0, "число серий (переопределяет run.trains)")
	cmd.Flags().StringVar(&opts.name, "name", "", "имя greeter (переопределяет greeter.name)")
	cmd.Flags().BoolVar(&opts.strictMutex, "strict-mutex", false, "атомарный захват флага вывода (меняет исходный протокол)")
	cmd.Flags().BoolVar(&opts.idle, "idle", false, "не вычислять, только ждать окончания серий")
	cmd.Flags().BoolVar(&opts.noExecLock, "no-exec-lock", false, "без общего lock исполнения")

	return cmd
}
