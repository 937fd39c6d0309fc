package crsf

import (
	"errors"

	"github.com/danmuck/lintx/internal/protocol/crc8"
)

var (
	// ErrNeedMoreData means no complete frame is buffered; push more bytes.
	ErrNeedMoreData   = errors.New("crsf: need more data")
	ErrInvalidLength  = errors.New("crsf: invalid frame length")
	ErrCRCMismatch    = errors.New("crsf: crc mismatch")
	ErrInvalidPayload = errors.New("crsf: invalid payload for frame type")
)

// ParserStats counts parser input handling.
type ParserStats struct {
	Packets       uint64
	SkippedBytes  uint64
	Overflowed    uint64
	BadLength     uint64
	CRCErrors     uint64
	BadPayloads   uint64
	UnknownFrames uint64
}

// Parser turns a raw byte stream into packets. Not safe for concurrent use.
type Parser struct {
	ring    ring
	scratch [MaxFrameLen]byte
	stats   ParserStats
}

func NewParser() *Parser {
	return &Parser{}
}

// Push buffers raw serial bytes.
func (p *Parser) Push(b []byte) {
	p.stats.Overflowed += uint64(p.ring.push(b))
}

// Buffered reports how many bytes are waiting.
func (p *Parser) Buffered() int {
	return p.ring.size
}

func (p *Parser) Stats() ParserStats {
	return p.stats
}

// Next returns the next packet in the buffer. It returns ErrNeedMoreData when
// the buffer holds no complete frame. Any other error describes one rejected
// frame; the parser has already moved past its address byte, so the caller
// just calls Next again.
func (p *Parser) Next() (Packet, error) {
	for p.ring.size > 0 && !Address(p.ring.peek(0)).Valid() {
		p.ring.discard(1)
		p.stats.SkippedBytes++
	}
	if p.ring.size < 2 {
		return nil, ErrNeedMoreData
	}

	n := int(p.ring.peek(1))
	if n < MinLen || n > MaxLen {
		p.ring.discard(1)
		p.stats.BadLength++
		return nil, ErrInvalidLength
	}
	if p.ring.size < n+2 {
		return nil, ErrNeedMoreData
	}

	frame := p.scratch[:n+2]
	p.ring.copyTo(frame)
	if crc8.Checksum(frame[2:n+1]) != frame[n+1] {
		p.ring.discard(1)
		p.stats.CRCErrors++
		return nil, ErrCRCMismatch
	}
	p.ring.discard(n + 2)

	pkt, err := decode(Address(frame[0]), FrameType(frame[2]), frame[3:n+1])
	if err != nil {
		p.stats.BadPayloads++
		return nil, err
	}
	if _, ok := pkt.(Unknown); ok {
		p.stats.UnknownFrames++
	}
	p.stats.Packets++
	return pkt, nil
}

func decode(addr Address, typ FrameType, payload []byte) (Packet, error) {
	switch typ {
	case TypeRcChannelsPacked:
		if len(payload) != RcChannelsPayload {
			return nil, ErrInvalidPayload
		}
		return RcChannels{Addr: addr, Channels: UnpackChannels(payload)}, nil
	case TypeLinkStatistics:
		if len(payload) != LinkStatsPayload {
			return nil, ErrInvalidPayload
		}
		return LinkStatistics{
			Addr:                addr,
			UplinkRSSI1:         payload[0],
			UplinkRSSI2:         payload[1],
			UplinkLinkQuality:   payload[2],
			UplinkSNR:           int8(payload[3]),
			ActiveAntenna:       payload[4],
			RFMode:              payload[5],
			UplinkTXPower:       payload[6],
			DownlinkRSSI:        payload[7],
			DownlinkLinkQuality: payload[8],
			DownlinkSNR:         int8(payload[9]),
		}, nil
	default:
		return Unknown{Addr: addr, FrameType: typ, Payload: append([]byte(nil), payload...)}, nil
	}
}

// UnpackChannels reads sixteen little-endian 11-bit fields from a packed
// 22-byte RC payload.
func UnpackChannels(payload []byte) [NumChannels]uint16 {
	var out [NumChannels]uint16
	var acc uint32
	var bits uint
	idx := 0
	for ch := 0; ch < NumChannels; ch++ {
		for bits < 11 {
			if idx >= len(payload) {
				return out
			}
			acc |= uint32(payload[idx]) << bits
			idx++
			bits += 8
		}
		out[ch] = uint16(acc & ChannelMask)
		acc >>= 11
		bits -= 11
	}
	return out
}

// PackChannels is the inverse of UnpackChannels. Values are masked to 11 bits.
func PackChannels(ch [NumChannels]uint16) [RcChannelsPayload]byte {
	var out [RcChannelsPayload]byte
	var acc uint32
	var bits uint
	idx := 0
	for _, v := range ch {
		acc |= uint32(v&ChannelMask) << bits
		bits += 11
		for bits >= 8 {
			out[idx] = byte(acc)
			idx++
			acc >>= 8
			bits -= 8
		}
	}
	return out
}

// EncodeFrame builds ADDR LEN TYPE PAYLOAD CRC.
func EncodeFrame(addr Address, typ FrameType, payload []byte) ([]byte, error) {
	n := len(payload) + 2
	if n > MaxLen {
		return nil, ErrInvalidLength
	}
	out := make([]byte, 0, n+2)
	out = append(out, byte(addr), byte(n), byte(typ))
	out = append(out, payload...)
	out = append(out, crc8.Checksum(out[2:]))
	return out, nil
}

// EncodeRcChannels builds a complete RC channels frame.
func EncodeRcChannels(addr Address, ch [NumChannels]uint16) []byte {
	payload := PackChannels(ch)
	out, _ := EncodeFrame(addr, TypeRcChannelsPacked, payload[:])
	return out
}
