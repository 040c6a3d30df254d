// Package pulse — параметры последовательности импульсов и перевод между двумя формами:
// частота/скважность/длительность серии и задержка/длительность импульса/число импульсов.
//
// Каноническая форма для движка — Params в целых микросекундах.
package pulse

import (
	"fmt"
	"math"
	"time"
)

// Accuracy — режим точности движка (как в pulsedThread).
type Accuracy int

const (
	Sleeps           Accuracy = iota // только sleep
	SleepsAndSpins                   // sleep до дедлайна минус запас, остаток — активное ожидание
	SleepsAndOrSpins                 // запас подстраивается по измеренному пересыпанию
)

func (a Accuracy) String() string {
	switch a {
	case Sleeps:
		return "sleeps"
	case SleepsAndSpins:
		return "sleeps_and_spins"
	case SleepsAndOrSpins:
		return "sleeps_and_or_spins"
	default:
		return fmt.Sprintf("accuracy(%d)", int(a))
	}
}

// ParseAccuracy разбирает имя режима точности из конфига.
func ParseAccuracy(s string) (Accuracy, error) {
	switch s {
	case "", "sleeps":
		return Sleeps, nil
	case "sleeps_and_spins":
		return SleepsAndSpins, nil
	case "sleeps_and_or_spins":
		return SleepsAndOrSpins, nil
	default:
		return 0, &ParamError{Field: "accuracy", Value: s, Reason: "unknown accuracy mode"}
	}
}

// Params — параметры задачи движка (ParameterSet).
// DelayUs — период импульса (от фронта до фронта), DurationUs — длительность высокого уровня.
// Count == 0 означает «до остановки» (политика движка).
type Params struct {
	DelayUs    int64
	DurationUs int64
	Count      int
	Accuracy   Accuracy
}

// Validate проверяет инвариант DelayUs >= DurationUs >= 0, Count >= 0.
func (p Params) Validate() error {
	if p.DurationUs < 0 {
		return &ParamError{Field: "duration", Value: p.DurationUs, Reason: "must be >= 0"}
	}
	if p.DelayUs < p.DurationUs {
		return &ParamError{Field: "delay", Value: p.DelayUs, Reason: fmt.Sprintf("must be >= duration (%d us)", p.DurationUs)}
	}
	if p.Count < 0 {
		return &ParamError{Field: "count", Value: p.Count, Reason: "must be >= 0"}
	}
	if p.Accuracy < Sleeps || p.Accuracy > SleepsAndOrSpins {
		return &ParamError{Field: "accuracy", Value: int(p.Accuracy), Reason: "unknown accuracy mode"}
	}
	return nil
}

// Delay возвращает период импульса как time.Duration.
func (p Params) Delay() time.Duration {
	return time.Duration(p.DelayUs) * time.Microsecond
}

// Duration возвращает длительность импульса как time.Duration.
func (p Params) Duration() time.Duration {
	return time.Duration(p.DurationUs) * time.Microsecond
}

// Frequency возвращает частоту серии в Гц (0 при нулевом периоде).
func (p Params) Frequency() float64 {
	if p.DelayUs <= 0 {
		return 0
	}
	return 1e6 / float64(p.DelayUs)
}

// DutyCycle возвращает скважность (доля высокого уровня в периоде).
func (p Params) DutyCycle() float64 {
	if p.DelayUs <= 0 {
		return 0
	}
	return float64(p.DurationUs) / float64(p.DelayUs)
}

// TrainDuration возвращает длительность всей серии (период × число импульсов).
func (p Params) TrainDuration() time.Duration {
	return time.Duration(p.DelayUs*int64(p.Count)) * time.Microsecond
}

func (p Params) String() string {
	return fmt.Sprintf("delay=%dus duration=%dus count=%d accuracy=%s", p.DelayUs, p.DurationUs, p.Count, p.Accuracy)
}

// Spec — внешняя форма параметров: ByFrequency или ByPulse.
type Spec interface {
	params(acc Accuracy) (Params, error)
}

// ByFrequency — серия, заданная частотой, скважностью и общей длительностью.
type ByFrequency struct {
	FrequencyHz   float64
	DutyCycle     float64 // (0, 1]
	TrainDuration time.Duration
}

// ByPulse — серия, заданная периодом, длительностью импульса и числом импульсов.
type ByPulse struct {
	Delay    time.Duration
	Duration time.Duration
	Count    int
}

// Translate переводит внешнюю форму в Params. Ошибка оборачивает ErrInvalidParameter.
func Translate(s Spec, acc Accuracy) (Params, error) {
	if s == nil {
		return Params{}, &ParamError{Field: "spec", Reason: "nil"}
	}
	p, err := s.params(acc)
	if err != nil {
		return Params{}, err
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (f ByFrequency) params(acc Accuracy) (Params, error) {
	if math.IsNaN(f.FrequencyHz) || math.IsInf(f.FrequencyHz, 0) || f.FrequencyHz <= 0 {
		return Params{}, &ParamError{Field: "frequency", Value: f.FrequencyHz, Reason: "must be > 0"}
	}
	if math.IsNaN(f.DutyCycle) || f.DutyCycle <= 0 || f.DutyCycle > 1 {
		return Params{}, &ParamError{Field: "duty_cycle", Value: f.DutyCycle, Reason: "must be in (0, 1]"}
	}
	if f.TrainDuration < 0 {
		return Params{}, &ParamError{Field: "train_duration", Value: f.TrainDuration, Reason: "must be >= 0"}
	}
	periodUs := 1e6 / f.FrequencyHz
	if periodUs > math.MaxInt32*1e3 {
		return Params{}, &ParamError{Field: "frequency", Value: f.FrequencyHz, Reason: "period too long"}
	}
	count := math.Round(f.TrainDuration.Seconds() * f.FrequencyHz)
	if count > math.MaxInt32 {
		return Params{}, &ParamError{Field: "train_duration", Value: f.TrainDuration, Reason: "too many pulses"}
	}
	return Params{
		DelayUs:    int64(math.Round(periodUs)),
		DurationUs: int64(math.Round(f.DutyCycle * 1e6 / f.FrequencyHz)),
		Count:      int(count),
		Accuracy:   acc,
	}, nil
}

func (b ByPulse) params(acc Accuracy) (Params, error) {
	if b.Delay < 0 {
		return Params{}, &ParamError{Field: "delay", Value: b.Delay, Reason: "must be >= 0"}
	}
	if b.Duration < 0 {
		return Params{}, &ParamError{Field: "duration", Value: b.Duration, Reason: "must be >= 0"}
	}
	return Params{
		DelayUs:    b.Delay.Microseconds(),
		DurationUs: b.Duration.Microseconds(),
		Count:      b.Count,
		Accuracy:   acc,
	}, nil
}
