package ubx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/shiwa/timecard-mini/pt-greeter/internal/pulse"
)

// CFG-TP5 payload layout (32 bytes, version 0)
// Offset 0:   tpIdx (1)
// Offset 1:   version (1)
// Offset 2-4: reserved (2)
// Offset 4-6: antCableDelay (2, int16)
// Offset 6-8: rfGroupDelay (2, int16)
// Offset 8:   freqPeriod (4), freqPeriodLock (4)
// Offset 16:  pulseLenRatio (4), pulseLenRatioLock (4)
// Offset 24:  userConfigDelay (4, int32)
// Offset 28:  flags (4)

const TP5PayloadSize = 32

// TP5Flags — биты флагов CFG-TP5
const (
	TP5Active         = 0x01
	TP5LockGnssFreq   = 0x02
	TP5LockedOtherSet = 0x04
	TP5IsFreq         = 0x08 // freqPeriod — частота в Гц, иначе период в мкс
	TP5IsLength       = 0x10 // pulseLenRatio — длительность в нс, иначе доля
	TP5AlignToTow     = 0x20
	TP5Polarity       = 0x40
)

// TP5Config — параметры Time Pulse 5. Без IsFreq период задаётся в мкс,
// с IsLength длительность импульса — в нс.
type TP5Config struct {
	TPIdx             uint8
	AntCableDelayNs   int16
	RfGroupDelayNs    int16
	FreqPeriod        uint32
	FreqPeriodLock    uint32
	PulseLenRatio     uint32
	PulseLenRatioLock uint32
	UserConfigDelayNs int32
	Active            bool
	LockGnssFreq      bool
	LockedOtherSet    bool
	IsFreq            bool
	IsLength          bool
	AlignToTow        bool
	Polarity          bool
}

// FromParams переносит серию на аппаратный time pulse: период DelayUs, импульс
// DurationUs. Одинаковые значения для режимов с фиксацией GNSS и без неё.
func FromParams(p pulse.Params, idx uint8) (TP5Config, error) {
	if err := p.Validate(); err != nil {
		return TP5Config{}, err
	}
	if p.DelayUs == 0 {
		return TP5Config{}, &pulse.ParamError{Field: "delay", Value: p.DelayUs, Reason: "time pulse period must be > 0"}
	}
	if p.DelayUs > math.MaxUint32 {
		return TP5Config{}, &pulse.ParamError{Field: "delay", Value: p.DelayUs, Reason: "does not fit CFG-TP5 freqPeriod"}
	}
	if p.DurationUs > math.MaxUint32/1000 {
		return TP5Config{}, &pulse.ParamError{Field: "duration", Value: p.DurationUs, Reason: "does not fit CFG-TP5 pulseLenRatio"}
	}
	period := uint32(p.DelayUs)
	length := uint32(p.DurationUs * 1000)
	return TP5Config{
		TPIdx:             idx,
		FreqPeriod:        period,
		FreqPeriodLock:    period,
		PulseLenRatio:     length,
		PulseLenRatioLock: length,
		Active:            true,
		LockGnssFreq:      true,
		LockedOtherSet:    true,
		IsLength:          true,
		AlignToTow:        true,
		Polarity:          true,
	}, nil
}

// Params переводит конфигурацию обратно в параметры серии (Count = 0, до остановки).
func (c TP5Config) Params() (pulse.Params, error) {
	if c.IsFreq || !c.IsLength {
		return pulse.Params{}, fmt.Errorf("tp5: поддерживается только период в мкс и длина в нс (flags freq=%v length=%v)", c.IsFreq, c.IsLength)
	}
	p := pulse.Params{DelayUs: int64(c.FreqPeriodLock), DurationUs: int64(c.PulseLenRatioLock) / 1000}
	return p, p.Validate()
}

func (c TP5Config) flags() uint32 {
	var flags uint32
	set := func(on bool, bit uint32) {
		if on {
			flags |= bit
		}
	}
	set(c.Active, TP5Active)
	set(c.LockGnssFreq, TP5LockGnssFreq)
	set(c.LockedOtherSet, TP5LockedOtherSet)
	set(c.IsFreq, TP5IsFreq)
	set(c.IsLength, TP5IsLength)
	set(c.AlignToTow, TP5AlignToTow)
	set(c.Polarity, TP5Polarity)
	return flags
}

// Marshal сериализует TP5Config в 32-байтный payload
func (c TP5Config) Marshal() []byte {
	payload := make([]byte, TP5PayloadSize)
	payload[0] = c.TPIdx
	binary.LittleEndian.PutUint16(payload[4:6], uint16(c.AntCableDelayNs))
	binary.LittleEndian.PutUint16(payload[6:8], uint16(c.RfGroupDelayNs))
	binary.LittleEndian.PutUint32(payload[8:12], c.FreqPeriod)
	binary.LittleEndian.PutUint32(payload[12:16], c.FreqPeriodLock)
	binary.LittleEndian.PutUint32(payload[16:20], c.PulseLenRatio)
	binary.LittleEndian.PutUint32(payload[20:24], c.PulseLenRatioLock)
	binary.LittleEndian.PutUint32(payload[24:28], uint32(c.UserConfigDelayNs))
	binary.LittleEndian.PutUint32(payload[28:32], c.flags())
	return payload
}

// ParseTP5 разбирает payload ответа на опрос CFG-TP5.
func ParseTP5(payload []byte) (TP5Config, error) {
	if len(payload) != TP5PayloadSize {
		return TP5Config{}, fmt.Errorf("tp5: длина payload %d, ожидается %d", len(payload), TP5PayloadSize)
	}
	flags := binary.LittleEndian.Uint32(payload[28:32])
	return TP5Config{
		TPIdx:             payload[0],
		AntCableDelayNs:   int16(binary.LittleEndian.Uint16(payload[4:6])),
		RfGroupDelayNs:    int16(binary.LittleEndian.Uint16(payload[6:8])),
		FreqPeriod:        binary.LittleEndian.Uint32(payload[8:12]),
		FreqPeriodLock:    binary.LittleEndian.Uint32(payload[12:16]),
		PulseLenRatio:     binary.LittleEndian.Uint32(payload[16:20]),
		PulseLenRatioLock: binary.LittleEndian.Uint32(payload[20:24]),
		UserConfigDelayNs: int32(binary.LittleEndian.Uint32(payload[24:28])),
		Active:            flags&TP5Active != 0,
		LockGnssFreq:      flags&TP5LockGnssFreq != 0,
		LockedOtherSet:    flags&TP5LockedOtherSet != 0,
		IsFreq:            flags&TP5IsFreq != 0,
		IsLength:          flags&TP5IsLength != 0,
		AlignToTow:        flags&TP5AlignToTow != 0,
		Polarity:          flags&TP5Polarity != 0,
	}, nil
}

// BuildCFGTP5 собирает полный UBX CFG-TP5 пакет
func BuildCFGTP5(c TP5Config) []byte {
	return EncodePacket(ClassCFG, IDTP5, c.Marshal())
}

// BuildPollTP5 собирает запрос текущей конфигурации time pulse idx.
func BuildPollTP5(idx uint8) []byte {
	return EncodePacket(ClassCFG, IDTP5, []byte{idx})
}
