package ubx

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// readTimeout — таймаут одного чтения порта; общий срок задаёт deadline вызова.
const readTimeout = 100 * time.Millisecond

// Port — обёртка над последовательным портом для UBX
type Port struct {
	rw io.ReadWriteCloser
}

// Open открывает последовательный порт
func Open(device string, baud int) (*Port, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	return &Port{rw: p}, nil
}

// NewPort оборачивает уже открытый поток (тесты, псевдотерминалы).
func NewPort(rw io.ReadWriteCloser) *Port {
	return &Port{rw: rw}
}

// WritePacket отправляет готовый UBX пакет
func (p *Port) WritePacket(packet []byte) error {
	_, err := p.rw.Write(packet)
	return err
}

// ConfigureTimePulse отправляет CFG-TP5 и ждёт подтверждения.
func (p *Port) ConfigureTimePulse(c TP5Config, timeout time.Duration) error {
	if err := p.WritePacket(BuildCFGTP5(c)); err != nil {
		return fmt.Errorf("write CFG-TP5: %w", err)
	}
	if err := WaitAck(p.rw, ClassCFG, IDTP5, time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("CFG-TP5 tp%d: %w", c.TPIdx, err)
	}
	return nil
}

// ReadTimePulse опрашивает текущую конфигурацию time pulse idx.
func (p *Port) ReadTimePulse(idx uint8, timeout time.Duration) (TP5Config, error) {
	if err := p.WritePacket(BuildPollTP5(idx)); err != nil {
		return TP5Config{}, fmt.Errorf("write CFG-TP5 poll: %w", err)
	}
	deadline := time.Now().Add(timeout)
	for {
		pkt, err := ReadPacket(p.rw, deadline)
		if errors.Is(err, ErrChecksum) {
			continue
		}
		if err != nil {
			return TP5Config{}, fmt.Errorf("poll CFG-TP5 tp%d: %w", idx, err)
		}
		h, _ := ParseHeader(pkt)
		if h.Class != ClassCFG || h.ID != IDTP5 {
			continue
		}
		c, err := ParseTP5(Payload(pkt))
		if err != nil {
			return TP5Config{}, err
		}
		if c.TPIdx == idx {
			return c, nil
		}
	}
}

// Close закрывает порт
func (p *Port) Close() error {
	if p.rw == nil {
		return nil
	}
	return p.rw.Close()
}
