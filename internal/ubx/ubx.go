// Package ubx — минимальный кодек протокола u-blox UBX: сборка и разбор пакетов,
// CFG-TP5 (аппаратный time pulse) и ожидание ACK по последовательному порту.
package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Sync bytes для UBX протокола
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Классы и ID сообщений
const (
	ClassACK = 0x05
	ClassCFG = 0x06

	IDAckNak = 0x00
	IDAckAck = 0x01
	IDTP5    = 0x31 // CFG-TP5 Time Pulse
)

var (
	ErrChecksum = errors.New("ubx: checksum mismatch")
	ErrTimeout  = errors.New("ubx: timeout")
	ErrNak      = errors.New("ubx: NAK")
)

// Header — заголовок UBX сообщения
type Header struct {
	Class  uint8
	ID     uint8
	Length uint16
}

// Checksum вычисляет UBX контрольную сумму (8-битный Флетчер, без sync bytes)
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// EncodePacket собирает полный UBX пакет: header + payload + checksum
func EncodePacket(class, id uint8, payload []byte) []byte {
	buf := make([]byte, 0, 8+len(payload))
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// ParseHeader парсит заголовок (sync + 4 байта)
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < 6 || buf[0] != Sync1 || buf[1] != Sync2 {
		return Header{}, false
	}
	return Header{Class: buf[2], ID: buf[3], Length: binary.LittleEndian.Uint16(buf[4:6])}, true
}

// Payload возвращает полезную нагрузку проверенного пакета.
func Payload(packet []byte) []byte {
	if len(packet) < 8 {
		return nil
	}
	return packet[6 : len(packet)-2]
}

// VerifyChecksum проверяет контрольную сумму пакета (header + payload + 2 байта checksum)
func VerifyChecksum(packet []byte) bool {
	if len(packet) < 8 {
		return false
	}
	ckA, ckB := Checksum(packet[2 : len(packet)-2])
	return packet[len(packet)-2] == ckA && packet[len(packet)-1] == ckB
}

// Ack — ответ ACK-ACK или ACK-NAK на сообщение Class/ID.
type Ack struct {
	Class uint8
	ID    uint8
	OK    bool
}

// ParseAck разбирает пакет класса ACK.
func ParseAck(packet []byte) (Ack, bool) {
	h, ok := ParseHeader(packet)
	if !ok || h.Class != ClassACK || h.Length != 2 || len(packet) != 10 {
		return Ack{}, false
	}
	if h.ID != IDAckAck && h.ID != IDAckNak {
		return Ack{}, false
	}
	return Ack{Class: packet[6], ID: packet[7], OK: h.ID == IDAckAck}, true
}

// deadlineReader превращает пустые чтения порта (таймаут VTIME) в ErrTimeout после deadline.
type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (d deadlineReader) Read(p []byte) (int, error) {
	for {
		n, err := d.r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if time.Now().After(d.deadline) {
			return 0, ErrTimeout
		}
	}
}

// ReadPacket читает один UBX пакет: ждёт sync, затем заголовок, payload и checksum.
// Байты до sync (NMEA и прочий поток приёмника) пропускаются.
func ReadPacket(r io.Reader, deadline time.Time) ([]byte, error) {
	dr := deadlineReader{r: r, deadline: deadline}
	var prev, b [1]byte
	for {
		if _, err := io.ReadFull(dr, b[:]); err != nil {
			return nil, err
		}
		if prev[0] == Sync1 && b[0] == Sync2 {
			break
		}
		prev = b
	}
	header := make([]byte, 4)
	if _, err := io.ReadFull(dr, header); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint16(header[2:4])
	buf := make([]byte, 0, 8+int(length))
	buf = append(buf, Sync1, Sync2)
	buf = append(buf, header...)
	rest := make([]byte, int(length)+2)
	if _, err := io.ReadFull(dr, rest); err != nil {
		return nil, err
	}
	buf = append(buf, rest...)
	if !VerifyChecksum(buf) {
		return buf, ErrChecksum
	}
	return buf, nil
}

// WaitAck читает пакеты до ACK/NAK на сообщение class/id. Чужие пакеты и битые
// контрольные суммы пропускаются.
func WaitAck(r io.Reader, class, id uint8, deadline time.Time) error {
	for {
		pkt, err := ReadPacket(r, deadline)
		if errors.Is(err, ErrChecksum) {
			continue
		}
		if err != nil {
			return err
		}
		ack, ok := ParseAck(pkt)
		if !ok || ack.Class != class || ack.ID != id {
			continue
		}
		if !ack.OK {
			return fmt.Errorf("%w: class 0x%02x id 0x%02x", ErrNak, class, id)
		}
		return nil
	}
}
