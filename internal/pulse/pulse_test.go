package pulse

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_ByFrequencyScenario(t *testing.T) {
	p, err := Translate(ByFrequency{FrequencyHz: 2, DutyCycle: 0.5, TrainDuration: 3 * time.Second}, Sleeps)
	require.NoError(t, err)

	assert.Equal(t, int64(500_000), p.DelayUs, "период 0.5 с")
	assert.Equal(t, int64(250_000), p.DurationUs, "импульс 0.25 с")
	assert.Equal(t, 6, p.Count)
	assert.Equal(t, Sleeps, p.Accuracy)
	assert.Equal(t, 500*time.Millisecond, p.Delay())
	assert.Equal(t, 250*time.Millisecond, p.Duration())
	assert.Equal(t, 3*time.Second, p.TrainDuration())
}

func TestTranslate_ByPulseScenario(t *testing.T) {
	p, err := Translate(ByPulse{Delay: 2 * time.Second, Duration: 500 * time.Millisecond, Count: 3}, SleepsAndSpins)
	require.NoError(t, err)

	assert.Equal(t, int64(2_000_000), p.DelayUs)
	assert.Equal(t, int64(500_000), p.DurationUs)
	assert.Equal(t, 3, p.Count)
	assert.Equal(t, 2.0, p.Delay().Seconds())
	assert.Equal(t, 0.5, p.Duration().Seconds())
	assert.InDelta(t, 0.5, p.Frequency(), 1e-12)
	assert.InDelta(t, 0.25, p.DutyCycle(), 1e-12)
}

func TestTranslate_ByPulseTruncatesToMicroseconds(t *testing.T) {
	p, err := Translate(ByPulse{Delay: 1500*time.Microsecond + 999*time.Nanosecond, Duration: 700*time.Microsecond + 1, Count: 1}, Sleeps)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.DelayUs)
	assert.Equal(t, int64(700), p.DurationUs)
}

func TestTranslate_FrequencyGrid(t *testing.T) {
	freqs := []float64{0.1, 1, 2, 3, 7, 60, 333.3, 1000, 44100}
	duties := []float64{1e-3, 0.1, 0.25, 1.0 / 3, 0.5, 0.9, 1}
	for _, f := range freqs {
		for _, d := range duties {
			p, err := Translate(ByFrequency{FrequencyHz: f, DutyCycle: d, TrainDuration: 10 * time.Second}, Sleeps)
			require.NoError(t, err, "f=%v d=%v", f, d)

			assert.Equal(t, int64(math.Round(1e6/f)), p.DelayUs, "f=%v d=%v", f, d)
			assert.Equal(t, int64(math.Round(d*1e6/f)), p.DurationUs, "f=%v d=%v", f, d)
			assert.GreaterOrEqual(t, p.DurationUs, int64(0))
			assert.GreaterOrEqual(t, p.DelayUs, p.DurationUs)
		}
	}
}

func TestTranslate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		spec  Spec
		field string
	}{
		{"duty zero", ByFrequency{FrequencyHz: 2, DutyCycle: 0, TrainDuration: time.Second}, "duty_cycle"},
		{"duty above one", ByFrequency{FrequencyHz: 2, DutyCycle: 1.01, TrainDuration: time.Second}, "duty_cycle"},
		{"duty NaN", ByFrequency{FrequencyHz: 2, DutyCycle: math.NaN(), TrainDuration: time.Second}, "duty_cycle"},
		{"freq zero", ByFrequency{FrequencyHz: 0, DutyCycle: 0.5, TrainDuration: time.Second}, "frequency"},
		{"freq negative", ByFrequency{FrequencyHz: -1, DutyCycle: 0.5, TrainDuration: time.Second}, "frequency"},
		{"freq inf", ByFrequency{FrequencyHz: math.Inf(1), DutyCycle: 0.5}, "frequency"},
		{"freq tiny", ByFrequency{FrequencyHz: 1e-300, DutyCycle: 0.5}, "frequency"},
		{"negative train", ByFrequency{FrequencyHz: 2, DutyCycle: 0.5, TrainDuration: -time.Second}, "train_duration"},
		{"negative delay", ByPulse{Delay: -time.Second, Duration: 0, Count: 1}, "delay"},
		{"negative duration", ByPulse{Delay: time.Second, Duration: -1 * time.Millisecond, Count: 1}, "duration"},
		{"duration above delay", ByPulse{Delay: time.Millisecond, Duration: time.Second, Count: 1}, "delay"},
		{"negative count", ByPulse{Delay: time.Second, Duration: time.Millisecond, Count: -1}, "count"},
		{"nil spec", nil, "spec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.spec, Sleeps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))

			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestParams_ValidateAccuracy(t *testing.T) {
	err := Params{DelayUs: 10, DurationUs: 5, Accuracy: Accuracy(7)}.Validate()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseAccuracy(t *testing.T) {
	tests := []struct {
		in   string
		want Accuracy
	}{
		{"", Sleeps},
		{"sleeps", Sleeps},
		{"sleeps_and_spins", SleepsAndSpins},
		{"sleeps_and_or_spins", SleepsAndOrSpins},
	}
	for _, tt := range tests {
		got, err := ParseAccuracy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, tt.in, got.String())
		}
	}

	_, err := ParseAccuracy("spin_forever")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParams_ZeroDelay(t *testing.T) {
	p := Params{}
	assert.Equal(t, 0.0, p.Frequency())
	assert.Equal(t, 0.0, p.DutyCycle())
	assert.NoError(t, p.Validate())
}
