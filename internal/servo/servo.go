// Package servo — регуляторы подстройки по измеренной ошибке.
package servo

import "time"

// Algorithm — интерфейс регулятора: по ошибке и интервалу выдаёт коррекцию.
type Algorithm interface {
	Update(errorNs float64, dt time.Duration) (adjustmentNs float64)
	Reset()
}

// PI — PI регулятор. Выход в единицах ошибки (нс), ограничен ±MaxAdjustment.
type PI struct {
	Kp, Ki        float64
	Integral      float64
	LastError     float64
	MaxIntegral   float64
	MaxAdjustment float64
}

// NewPI создаёт PI регулятор; нулевые коэффициенты заменяются значениями по умолчанию.
func NewPI(kp, ki float64) *PI {
	if kp == 0 && ki == 0 {
		kp, ki = 0.2, 0.05
	}
	return &PI{
		Kp:            kp,
		Ki:            ki,
		MaxIntegral:   1e7,
		MaxAdjustment: 1e6, // 1 ms
	}
}

// Update возвращает коррекцию по ошибке errorNs за интервал dt.
func (pi *PI) Update(errorNs float64, dt time.Duration) float64 {
	dtSec := dt.Seconds()
	if dtSec <= 0 {
		return 0
	}
	pi.Integral += errorNs * dtSec
	if pi.Integral > pi.MaxIntegral {
		pi.Integral = pi.MaxIntegral
	} else if pi.Integral < -pi.MaxIntegral {
		pi.Integral = -pi.MaxIntegral
	}
	pi.LastError = errorNs

	out := pi.Kp*errorNs + pi.Ki*pi.Integral
	if out > pi.MaxAdjustment {
		out = pi.MaxAdjustment
	} else if out < -pi.MaxAdjustment {
		out = -pi.MaxAdjustment
	}
	return out
}

// Reset сбрасывает интеграл и последнюю ошибку
func (pi *PI) Reset() {
	pi.Integral = 0
	pi.LastError = 0
}
