// Package config — YAML-конфигурация pt-greeter.
// Незаданные поля заполняются значениями Default(); неизвестные ключи игнорируются.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/engine"
	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

// Режимы задания серии в greeter.mode.
const (
	ModeFrequency = "frequency"
	ModePulse     = "pulse"
)

// Config — конфигурация pt-greeter.
type Config struct {
	Greeter   GreeterConfig   `yaml:"greeter"`
	Run       RunConfig       `yaml:"run"`
	Engine    EngineConfig    `yaml:"engine"`
	Mutex     MutexConfig     `yaml:"mutex"`
	Wait      WaitConfig      `yaml:"wait"`
	Timepulse TimepulseConfig `yaml:"timepulse"`
}

// GreeterConfig — параметры серии.
// mode: frequency — frequency_hz/duty_cycle/train_duration; pulse — pulse_delay/pulse_duration/pulse_count.
type GreeterConfig struct {
	Name          string        `yaml:"name"`
	Mode          string        `yaml:"mode"`
	FrequencyHz   float64       `yaml:"frequency_hz"`
	DutyCycle     float64       `yaml:"duty_cycle"`
	TrainDuration time.Duration `yaml:"train_duration"`
	PulseDelay    time.Duration `yaml:"pulse_delay"`
	PulseDuration time.Duration `yaml:"pulse_duration"`
	PulseCount    int           `yaml:"pulse_count"`
	Accuracy      string        `yaml:"accuracy"` // sleeps, sleeps_and_spins, sleeps_and_or_spins
	EndFunc       string        `yaml:"end_func"` // off, freq, pulse
}

// RunConfig — демонстрационный прогон.
type RunConfig struct {
	Trains      int           `yaml:"trains"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	ReportEvery int           `yaml:"report_every"`
	// Idle — не вычислять в основном потоке, только ждать окончания серий.
	Idle bool `yaml:"idle"`
}

// EngineConfig — программный движок.
type EngineConfig struct {
	MaxTasks       int           `yaml:"max_tasks"`
	ExecLock       bool          `yaml:"exec_lock"`
	SwitchInterval time.Duration `yaml:"switch_interval"`
}

// MutexConfig — флаг сериализации вывода.
type MutexConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Strict       bool          `yaml:"strict"`
}

// WaitConfig — опрос занятости движка.
type WaitConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// TimepulseConfig — порт приёмника u-blox и параметры CFG-TP5.
type TimepulseConfig struct {
	Port            string `yaml:"port"`
	Baud            int    `yaml:"baud"`
	TPIdx           uint8  `yaml:"tp_idx"`
	AntCableDelayNs int16  `yaml:"ant_cable_delay_ns"`
}

// Default возвращает конфиг по умолчанию: 2 Hz, duty 0.5, серия 3 s, три серии.
func Default() *Config {
	return &Config{
		Greeter: GreeterConfig{
			Name:          "pt-greeter",
			Mode:          ModeFrequency,
			FrequencyHz:   2,
			DutyCycle:     0.5,
			TrainDuration: 3 * time.Second,
			Accuracy:      "sleeps",
			EndFunc:       "pulse",
		},
		Run: RunConfig{
			Trains:      3,
			WaitTimeout: time.Minute,
			ReportEvery: 1_000_000,
		},
		Engine: EngineConfig{
			MaxTasks:       16,
			ExecLock:       true,
			SwitchInterval: 5 * time.Millisecond,
		},
		Mutex: MutexConfig{
			PollInterval: 10 * time.Millisecond,
		},
		Wait: WaitConfig{
			PollInterval: 50 * time.Millisecond,
		},
		Timepulse: TimepulseConfig{
			Port: "/dev/ttyS0",
			Baud: 9600,
		},
	}
}

// Load читает конфиг из YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML и подставляет значения по умолчанию.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	g := &c.Greeter
	if g.Name == "" {
		g.Name = d.Greeter.Name
	}
	if g.Mode == "" {
		g.Mode = d.Greeter.Mode
	}
	// Частотные значения подставляются, только если не задан ни один из них.
	if g.Mode == ModeFrequency && g.FrequencyHz == 0 && g.DutyCycle == 0 && g.TrainDuration == 0 {
		g.FrequencyHz, g.DutyCycle, g.TrainDuration = d.Greeter.FrequencyHz, d.Greeter.DutyCycle, d.Greeter.TrainDuration
	}
	if g.Accuracy == "" {
		g.Accuracy = d.Greeter.Accuracy
	}
	if g.EndFunc == "" {
		g.EndFunc = d.Greeter.EndFunc
	}
	if c.Run.Trains == 0 {
		c.Run.Trains = d.Run.Trains
	}
	if c.Run.WaitTimeout == 0 {
		c.Run.WaitTimeout = d.Run.WaitTimeout
	}
	if c.Run.ReportEvery == 0 {
		c.Run.ReportEvery = d.Run.ReportEvery
	}
	if c.Engine.MaxTasks == 0 {
		c.Engine.MaxTasks = d.Engine.MaxTasks
	}
	if c.Engine.SwitchInterval == 0 {
		c.Engine.SwitchInterval = d.Engine.SwitchInterval
	}
	if c.Mutex.PollInterval == 0 {
		c.Mutex.PollInterval = d.Mutex.PollInterval
	}
	if c.Wait.PollInterval == 0 {
		c.Wait.PollInterval = d.Wait.PollInterval
	}
	if c.Timepulse.Port == "" {
		c.Timepulse.Port = d.Timepulse.Port
	}
	if c.Timepulse.Baud == 0 {
		c.Timepulse.Baud = d.Timepulse.Baud
	}
}

// Validate проверяет согласованность полей; параметры серии проверяются переводом в pulse.Params.
func (c *Config) Validate() error {
	var errs []error
	if c.Run.Trains < 1 {
		errs = append(errs, fmt.Errorf("run.trains: %d, нужно >= 1", c.Run.Trains))
	}
	if c.Run.ReportEvery < 1 {
		errs = append(errs, fmt.Errorf("run.report_every: %d, нужно >= 1", c.Run.ReportEvery))
	}
	if c.Run.WaitTimeout < 0 {
		errs = append(errs, fmt.Errorf("run.wait_timeout: %v < 0", c.Run.WaitTimeout))
	}
	if c.Engine.MaxTasks < 0 {
		errs = append(errs, fmt.Errorf("engine.max_tasks: %d < 0", c.Engine.MaxTasks))
	}
	if c.Mutex.PollInterval < 0 || c.Wait.PollInterval < 0 || c.Engine.SwitchInterval < 0 {
		errs = append(errs, errors.New("интервалы опроса не могут быть отрицательными"))
	}
	if _, _, err := c.EndMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Params(); err != nil {
		errs = append(errs, fmt.Errorf("greeter: %w", err))
	}
	if c.Timepulse.Baud <= 0 {
		errs = append(errs, fmt.Errorf("timepulse.baud: %d", c.Timepulse.Baud))
	}
	return errors.Join(errs...)
}

// Spec возвращает описание серии в выбранной форме.
func (c *Config) Spec() (pulse.Spec, error) {
	g := c.Greeter
	switch g.Mode {
	case ModeFrequency:
		return pulse.ByFrequency{FrequencyHz: g.FrequencyHz, DutyCycle: g.DutyCycle, TrainDuration: g.TrainDuration}, nil
	case ModePulse:
		return pulse.ByPulse{Delay: g.PulseDelay, Duration: g.PulseDuration, Count: g.PulseCount}, nil
	default:
		return nil, fmt.Errorf("greeter.mode: неизвестный режим %q (frequency|pulse)", g.Mode)
	}
}

// Accuracy разбирает greeter.accuracy.
func (c *Config) Accuracy() (pulse.Accuracy, error) {
	return pulse.ParseAccuracy(c.Greeter.Accuracy)
}

// Params переводит серию в параметры движка.
func (c *Config) Params() (pulse.Params, error) {
	s, err := c.Spec()
	if err != nil {
		return pulse.Params{}, err
	}
	acc, err := c.Accuracy()
	if err != nil {
		return pulse.Params{}, err
	}
	return pulse.Translate(s, acc)
}

// EndMode разбирает greeter.end_func; ok=false — колбэк окончания серии выключен.
func (c *Config) EndMode() (mode engine.EndMode, ok bool, err error) {
	switch c.Greeter.EndFunc {
	case "off", "none":
		return 0, false, nil
	case "freq", "frequency":
		return engine.EndFreqMode, true, nil
	case "pulse":
		return engine.EndPulseMode, true, nil
	default:
		return 0, false, fmt.Errorf("greeter.end_func: неизвестное значение %q (off|freq|pulse)", c.Greeter.EndFunc)
	}
}
