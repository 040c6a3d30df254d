package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
	"github.com/shiwa/timecard-mini/pt-greeter/pkg/config"
)

type translateOptions struct {
	freq     float64
	duty     float64
	train    time.Duration
	delay    time.Duration
	duration time.Duration
	count    int
	accuracy string
	format   string
}

// translation — параметры движка и производные величины для вывода.
type translation struct {
	DelayUs       int64   `yaml:"delay_us"`
	DurationUs    int64   `yaml:"duration_us"`
	Count         int     `yaml:"count"`
	Accuracy      string  `yaml:"accuracy"`
	FrequencyHz   float64 `yaml:"frequency_hz"`
	DutyCycle     float64 `yaml:"duty_cycle"`
	TrainDuration string  `yaml:"train_duration"`
}

func newTranslation(p pulse.Params) translation {
	return translation{
		DelayUs:       p.DelayUs,
		DurationUs:    p.DurationUs,
		Count:         p.Count,
		Accuracy:      p.Accuracy.String(),
		FrequencyHz:   p.Frequency(),
		DutyCycle:     p.DutyCycle(),
		TrainDuration: p.TrainDuration().String(),
	}
}

// NewTranslateCommand создаёт команду translate: перевод параметров серии в форму движка.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Показать параметры движка для серии",
		Long: `Переводит серию, заданную частотой (--freq, --duty, --train) или импульсом
(--delay, --duration, --count), в период, длительность и число импульсов в мкс.
Без флагов серии используется конфиг.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, acc, err := opts.resolve(cmd, rootOpts)
			if err != nil {
				return err
			}
			p, err := pulse.Translate(spec, acc)
			if err != nil {
				return commandError(err)
			}
			return writeTranslation(cmd.OutOrStdout(), opts.format, newTranslation(p))
		},
	}

	cmd.Flags().Float64Var(&opts.freq, "freq", 0, "частота серии, Гц")
	cmd.Flags().Float64Var(&opts.duty, "duty", 0.5, "скважность (0, 1]")
	cmd.Flags().DurationVar(&opts.train, "train", 0, "длительность серии")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "период импульса")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "длительность импульса")
	cmd.Flags().IntVar(&opts.count, "count", 0, "число импульсов (0 — до остановки)")
	cmd.Flags().StringVar(&opts.accuracy, "accuracy", "", "sleeps|sleeps_and_spins|sleeps_and_or_spins")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "формат вывода (text|yaml)")
	cmd.MarkFlagsMutuallyExclusive("freq", "delay")

	return cmd
}

func (o *translateOptions) resolve(cmd *cobra.Command, rootOpts *RootOptions) (pulse.Spec, pulse.Accuracy, error) {
	if o.format != "text" && o.format != "yaml" {
		return nil, 0, commandError(fmt.Errorf("неизвестный формат %q (text|yaml)", o.format))
	}
	flags := cmd.Flags()
	var cfg *config.Config
	if (!flags.Changed("freq") && !flags.Changed("delay")) || !flags.Changed("accuracy") {
		var err error
		if cfg, err = loadConfig(rootOpts); err != nil {
			return nil, 0, err
		}
	}

	var acc pulse.Accuracy
	var err error
	if flags.Changed("accuracy") {
		acc, err = pulse.ParseAccuracy(o.accuracy)
	} else {
		acc, err = cfg.Accuracy()
	}
	if err != nil {
		return nil, 0, commandError(err)
	}

	switch {
	case flags.Changed("freq"):
		return pulse.ByFrequency{FrequencyHz: o.freq, DutyCycle: o.duty, TrainDuration: o.train}, acc, nil
	case flags.Changed("delay"):
		return pulse.ByPulse{Delay: o.delay, Duration: o.duration, Count: o.count}, acc, nil
	}
	spec, err := cfg.Spec()
	if err != nil {
		return nil, 0, commandError(err)
	}
	return spec, acc, nil
}

func writeTranslation(w io.Writer, format string, t translation) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := fmt.Fprintf(w, `delay:      %d us
duration:   %d us
count:      %d
accuracy:   %s
frequency:  %g Hz
duty cycle: %g
train:      %s
`, t.DelayUs, t.DurationUs, t.Count, t.Accuracy, t.FrequencyHz, t.DutyCycle, t.TrainDuration)
	return err
}
