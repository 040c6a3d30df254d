package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/logger"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/ubx"
)

type timepulseOptions struct {
	port    string
	baud    int
	tpIdx   uint8
	timeout time.Duration
	read    bool
}

// NewTimepulseCommand создаёт команду timepulse: перенос серии на аппаратный
// time pulse приёмника u-blox (CFG-TP5).
func NewTimepulseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &timepulseOptions{}
	cmd := &cobra.Command{
		Use:   "timepulse",
		Short: "Настроить time pulse приёмника u-blox по параметрам серии",
		Long: `Переводит серию из конфига в CFG-TP5 (период в мкс, длина импульса в нс),
отправляет на приёмник и ждёт ACK. С --read только читает текущую настройку.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Timepulse.Port = opts.port
			}
			if flags.Changed("baud") {
				cfg.Timepulse.Baud = opts.baud
			}
			if flags.Changed("tp-idx") {
				cfg.Timepulse.TPIdx = opts.tpIdx
			}

			var tp ubx.TP5Config
			if !opts.read {
				p, err := cfg.Params()
				if err != nil {
					return commandError(err)
				}
				if tp, err = ubx.FromParams(p, cfg.Timepulse.TPIdx); err != nil {
					return commandError(err)
				}
				tp.AntCableDelayNs = cfg.Timepulse.AntCableDelayNs
			}

			port, err := ubx.Open(cfg.Timepulse.Port, cfg.Timepulse.Baud)
			if err != nil {
				return err
			}
			defer port.Close()

			out := cmd.OutOrStdout()
			if opts.read {
				cur, err := port.ReadTimePulse(cfg.Timepulse.TPIdx, opts.timeout)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tp%d: period %d us, length %d ns, active=%v lock=%v align=%v\n",
					cur.TPIdx, cur.FreqPeriodLock, cur.PulseLenRatioLock, cur.Active, cur.LockGnssFreq, cur.AlignToTow)
				return nil
			}

			if err := port.ConfigureTimePulse(tp, opts.timeout); err != nil {
				return err
			}
			logger.Debug("timepulse: % X", ubx.BuildCFGTP5(tp))
			fmt.Fprintf(out, "Time pulse настроен: %s, %d baud, tp%d, период %d us, импульс %d ns\n",
				cfg.Timepulse.Port, cfg.Timepulse.Baud, tp.TPIdx, tp.FreqPeriod, tp.PulseLenRatio)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "последовательный порт (переопределяет timepulse.port)")
	cmd.Flags().IntVarP(&opts.baud, "baud", "b", 0, "скорость порта (переопределяет timepulse.baud)")
	cmd.Flags().Uint8Var(&opts.tpIdx, "tp-idx", 0, "номер time pulse (переопределяет timepulse.tp_idx)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "ожидание ответа приёмника")
	cmd.Flags().BoolVar(&opts.read, "read", false, "только прочитать текущую настройку")

	return cmd
}
