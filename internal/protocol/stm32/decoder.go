// Package stm32 decodes the framed serial link spoken by the STM32 joystick
// board:
//
//	SYNC(0x5A) LEN(2..60) PAYLOAD(LEN bytes, last byte CRC8/DVB-S2)
//
// The CRC covers every payload byte before it. Payload byte 0 is a message
// type tag.
package stm32

import (
	"encoding/binary"

	"github.com/danmuck/lintx/internal/protocol/crc8"
)

const (
	SyncByte      byte = 0x5A
	MinPayloadLen      = 2
	MaxPayloadLen      = 60

	TagJoystick byte = 0x01
	// tag + 4 little-endian u16 channels + crc
	JoystickMinLen = 1 + 4*2 + 1
)

// State is the decoder's position within a frame.
type State int

const (
	AwaitingSync State = iota
	AwaitingLength
	AwaitingPayload
)

func (s State) String() string {
	switch s {
	case AwaitingSync:
		return "awaiting_sync"
	case AwaitingLength:
		return "awaiting_length"
	case AwaitingPayload:
		return "awaiting_payload"
	default:
		return "unknown"
	}
}

// Stats counts what the decoder did with its input. Drops never change the
// resynchronization behavior; they are only counted.
type Stats struct {
	SyncDiscards uint64 // bytes skipped while hunting for sync
	BadLength    uint64
	CRCErrors    uint64
	UnknownTags  uint64
	ShortPackets uint64 // joystick tag with fewer than JoystickMinLen bytes
	Frames       uint64
}

// Decoder is the byte-at-a-time frame state machine. It is not safe for
// concurrent use; one read loop owns it.
type Decoder struct {
	state   State
	target  int
	payload [MaxPayloadLen]byte
	n       int
	stats   Stats
}

func NewDecoder() *Decoder {
	return &Decoder{state: AwaitingSync}
}

func (d *Decoder) State() State {
	return d.state
}

func (d *Decoder) Stats() Stats {
	return d.stats
}

// Feed runs every byte of p through the state machine and calls emit once
// per decoded joystick frame, in wire order.
func (d *Decoder) Feed(p []byte, emit func([4]int16)) {
	for _, b := range p {
		if ch, ok := d.step(b); ok {
			emit(ch)
		}
	}
}

func (d *Decoder) step(b byte) ([4]int16, bool) {
	switch d.state {
	case AwaitingSync:
		if b == SyncByte {
			d.state = AwaitingLength
		} else {
			d.stats.SyncDiscards++
		}
	case AwaitingLength:
		n := int(b)
		if n < MinPayloadLen || n > MaxPayloadLen {
			d.stats.BadLength++
			d.state = AwaitingSync
			return [4]int16{}, false
		}
		d.target = n
		d.n = 0
		d.state = AwaitingPayload
	case AwaitingPayload:
		d.payload[d.n] = b
		d.n++
		if d.n < d.target {
			return [4]int16{}, false
		}
		d.state = AwaitingSync
		body := d.payload[:d.n-1]
		if crc8.Checksum(body) != d.payload[d.n-1] {
			d.stats.CRCErrors++
			return [4]int16{}, false
		}
		return d.dispatch(d.payload[:d.n])
	}
	return [4]int16{}, false
}

// dispatch interprets a CRC-valid payload (tag through crc byte).
func (d *Decoder) dispatch(payload []byte) ([4]int16, bool) {
	switch payload[0] {
	case TagJoystick:
		if len(payload) < JoystickMinLen {
			d.stats.ShortPackets++
			return [4]int16{}, false
		}
		var ch [4]int16
		for i := range ch {
			start := 1 + i*2
			ch[i] = int16(binary.LittleEndian.Uint16(payload[start : start+2]))
		}
		d.stats.Frames++
		return ch, true
	default:
		d.stats.UnknownTags++
		return [4]int16{}, false
	}
}
