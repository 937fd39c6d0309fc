package stm32

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/lintx/internal/protocol/crc8"
	"github.com/danmuck/lintx/internal/testutil/testlog"
)

func collect(d *Decoder, in []byte) [][4]int16 {
	var out [][4]int16
	d.Feed(in, func(ch [4]int16) {
		out = append(out, ch)
	})
	return out
}

func TestDecodeJoystickFrame(t *testing.T) {
	testlog.Start(t)
	body := []byte{0x01, 0x64, 0x00, 0xC8, 0x00, 0x2C, 0x01, 0x90, 0x01}
	wire := append([]byte{0x5A, 0x0A}, body...)
	wire = append(wire, crc8.Checksum(body))

	if !bytes.Equal(wire, EncodeJoystick([4]uint16{100, 200, 300, 400})) {
		t.Fatalf("encoder disagrees with hand-built frame: %x", wire)
	}

	d := NewDecoder()
	got := collect(d, wire)
	if len(got) != 1 {
		t.Fatalf("frames got=%d want=1", len(got))
	}
	if got[0] != [4]int16{100, 200, 300, 400} {
		t.Fatalf("frame got=%v", got[0])
	}
	if d.State() != AwaitingSync {
		t.Fatalf("state got=%s want=awaiting_sync", d.State())
	}
	if d.Stats().Frames != 1 {
		t.Fatalf("stats: %+v", d.Stats())
	}
}

func TestDecodeReinterpretsAsSigned(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder()
	got := collect(d, EncodeJoystick([4]uint16{0xFFFF, 0x8000, 0x7FFF, 0}))
	if len(got) != 1 || got[0] != [4]int16{-1, -32768, 32767, 0} {
		t.Fatalf("got=%v", got)
	}
}

func TestCRCBitFlipDropsAndRecovers(t *testing.T) {
	testlog.Start(t)
	good := EncodeJoystick([4]uint16{100, 200, 300, 400})
	next := EncodeJoystick([4]uint16{1, 2, 3, 4})
	for bit := 0; bit < 8; bit++ {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1] ^= 1 << bit

		d := NewDecoder()
		if got := collect(d, bad); len(got) != 0 {
			t.Fatalf("bit %d: corrupted frame emitted %v", bit, got)
		}
		if d.Stats().CRCErrors != 1 {
			t.Fatalf("bit %d: crc errors got=%d", bit, d.Stats().CRCErrors)
		}
		got := collect(d, next)
		if len(got) != 1 || got[0] != [4]int16{1, 2, 3, 4} {
			t.Fatalf("bit %d: decoder did not recover, got=%v", bit, got)
		}
	}
}

func TestBadLengthReturnsToSync(t *testing.T) {
	testlog.Start(t)
	for _, n := range []byte{0, 1, 61, 0xFF} {
		d := NewDecoder()
		collect(d, []byte{SyncByte, n})
		if d.State() != AwaitingSync {
			t.Fatalf("len %d: state got=%s", n, d.State())
		}
		if d.Stats().BadLength != 1 {
			t.Fatalf("len %d: bad length not counted", n)
		}
		got := collect(d, EncodeJoystick([4]uint16{5, 6, 7, 8}))
		if len(got) != 1 || got[0] != [4]int16{5, 6, 7, 8} {
			t.Fatalf("len %d: got=%v after bad length", n, got)
		}
	}
}

func TestBoundaryLengthsAccepted(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder()
	minFrame, err := EncodeFrame([]byte{0x7E})
	if err != nil {
		t.Fatalf("encode min: %v", err)
	}
	maxFrame, err := EncodeFrame(bytes.Repeat([]byte{0x33}, MaxPayloadLen-1))
	if err != nil {
		t.Fatalf("encode max: %v", err)
	}
	collect(d, minFrame)
	collect(d, maxFrame)
	if s := d.Stats(); s.UnknownTags != 2 || s.BadLength != 0 || s.CRCErrors != 0 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestEncodeFrameRejectsOutOfRange(t *testing.T) {
	testlog.Start(t)
	if _, err := EncodeFrame(nil); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for empty body, got %v", err)
	}
	if _, err := EncodeFrame(make([]byte, MaxPayloadLen)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for oversize body, got %v", err)
	}
}

func TestJoystickTrailingBytesIgnored(t *testing.T) {
	testlog.Start(t)
	body := []byte{TagJoystick, 0x0A, 0x00, 0x14, 0x00, 0x1E, 0x00, 0x28, 0x00, 0xAA, 0x00, 0x00}
	wire, err := EncodeFrame(body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := collect(NewDecoder(), wire)
	if len(got) != 1 || got[0] != [4]int16{10, 20, 30, 40} {
		t.Fatalf("got=%v", got)
	}
}

func TestShortJoystickAndUnknownTagEmitNothing(t *testing.T) {
	testlog.Start(t)
	short, _ := EncodeFrame([]byte{TagJoystick, 0x01, 0x02, 0x03})
	unknown, _ := EncodeFrame([]byte{0x42, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	d := NewDecoder()
	if got := collect(d, append(short, unknown...)); len(got) != 0 {
		t.Fatalf("unexpected frames %v", got)
	}
	if s := d.Stats(); s.ShortPackets != 1 || s.UnknownTags != 1 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestGarbageAndSplitFeeds(t *testing.T) {
	testlog.Start(t)
	stream := []byte{0x00, 0x13, 0xFF}
	stream = append(stream, EncodeJoystick([4]uint16{11, 22, 33, 44})...)
	stream = append(stream, 0x99)
	stream = append(stream, EncodeJoystick([4]uint16{55, 66, 77, 88})...)

	d := NewDecoder()
	var got [][4]int16
	for i := range stream {
		got = append(got, collect(d, stream[i:i+1])...)
	}
	if len(got) != 2 || got[0] != [4]int16{11, 22, 33, 44} || got[1] != [4]int16{55, 66, 77, 88} {
		t.Fatalf("got=%v", got)
	}
	if d.Stats().SyncDiscards != 4 {
		t.Fatalf("sync discards got=%d want=4", d.Stats().SyncDiscards)
	}
}

func TestSyncByteInsidePayloadIsData(t *testing.T) {
	testlog.Start(t)
	got := collect(NewDecoder(), EncodeJoystick([4]uint16{0x5A5A, 0x005A, 0x5A00, 0x0A5A}))
	want := [4]int16{0x5A5A, 0x005A, 0x5A00, 0x0A5A}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got=%v want=%v", got, want)
	}
}
