package stm32

import (
	"encoding/binary"
	"errors"

	"github.com/danmuck/lintx/internal/protocol/crc8"
)

var ErrInvalidLength = errors.New("stm32: payload length out of range")

// EncodeFrame wraps body (tag and data, without crc) in sync, length and crc.
func EncodeFrame(body []byte) ([]byte, error) {
	n := len(body) + 1
	if n < MinPayloadLen || n > MaxPayloadLen {
		return nil, ErrInvalidLength
	}
	out := make([]byte, 0, n+2)
	out = append(out, SyncByte, byte(n))
	out = append(out, body...)
	out = append(out, crc8.Checksum(body))
	return out, nil
}

// EncodeJoystick builds a complete joystick frame for the four channels.
func EncodeJoystick(ch [4]uint16) []byte {
	body := make([]byte, 1+len(ch)*2)
	body[0] = TagJoystick
	for i, v := range ch {
		binary.LittleEndian.PutUint16(body[1+i*2:], v)
	}
	out, _ := EncodeFrame(body)
	return out
}
