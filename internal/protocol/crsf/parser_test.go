package crsf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/lintx/internal/testutil/testlog"
)

func drain(t *testing.T, p *Parser) ([]Packet, []error) {
	t.Helper()
	var pkts []Packet
	var errs []error
	for i := 0; i < 1000; i++ {
		pkt, err := p.Next()
		if errors.Is(err, ErrNeedMoreData) {
			return pkts, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pkts = append(pkts, pkt)
	}
	t.Fatalf("parser did not drain")
	return nil, nil
}

func sampleChannels() [NumChannels]uint16 {
	var ch [NumChannels]uint16
	for i := range ch {
		ch[i] = uint16(i * 123 % 1985)
	}
	ch[0], ch[1], ch[2], ch[3] = 300, 700, 1000, 500
	ch[15] = 2047
	return ch
}

func TestPackUnpackChannels(t *testing.T) {
	testlog.Start(t)
	ch := sampleChannels()
	packed := PackChannels(ch)
	if got := UnpackChannels(packed[:]); got != ch {
		t.Fatalf("unpack got=%v want=%v", got, ch)
	}
}

func TestUnpackKnownCenterFrame(t *testing.T) {
	testlog.Start(t)
	var ch [NumChannels]uint16
	for i := range ch {
		ch[i] = ChannelValueCenter
	}
	packed := PackChannels(ch)
	// 992 = 0b011_1110_0000; first byte carries the low 8 bits.
	if packed[0] != 0xE0 || packed[1] != 0x03 {
		t.Fatalf("unexpected packing prefix %#02x %#02x", packed[0], packed[1])
	}
}

func TestParseRcChannels(t *testing.T) {
	testlog.Start(t)
	ch := sampleChannels()
	p := NewParser()
	p.Push(EncodeRcChannels(AddrFlightController, ch))

	pkts, errs := drain(t, p)
	if len(errs) != 0 || len(pkts) != 1 {
		t.Fatalf("pkts=%d errs=%v", len(pkts), errs)
	}
	rc, ok := pkts[0].(RcChannels)
	if !ok {
		t.Fatalf("unexpected packet %T", pkts[0])
	}
	if rc.Channels != ch || rc.Address() != AddrFlightController || rc.Type() != TypeRcChannelsPacked {
		t.Fatalf("rc mismatch: %+v", rc)
	}
	if p.Buffered() != 0 {
		t.Fatalf("buffer not drained: %d", p.Buffered())
	}
}

func TestParseAcrossPartialPushes(t *testing.T) {
	testlog.Start(t)
	wire := EncodeRcChannels(AddrFlightController, sampleChannels())
	p := NewParser()
	for i := 0; i < len(wire)-1; i++ {
		p.Push(wire[i : i+1])
		if _, err := p.Next(); !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("byte %d: expected ErrNeedMoreData, got %v", i, err)
		}
	}
	p.Push(wire[len(wire)-1:])
	pkt, err := p.Next()
	if err != nil {
		t.Fatalf("final next: %v", err)
	}
	if _, ok := pkt.(RcChannels); !ok {
		t.Fatalf("unexpected packet %T", pkt)
	}
}

func TestLinkStatisticsAndUnknownFrames(t *testing.T) {
	testlog.Start(t)
	stats, _ := EncodeFrame(AddrFlightController, TypeLinkStatistics,
		[]byte{40, 42, 100, 0xF6, 1, 4, 3, 55, 99, 7})
	battery, _ := EncodeFrame(AddrFlightController, TypeBatterySensor, []byte{0, 1, 0, 2, 0, 0, 3, 80})

	p := NewParser()
	p.Push(stats)
	p.Push(battery)
	pkts, errs := drain(t, p)
	if len(errs) != 0 || len(pkts) != 2 {
		t.Fatalf("pkts=%d errs=%v", len(pkts), errs)
	}
	ls, ok := pkts[0].(LinkStatistics)
	if !ok || ls.UplinkSNR != -10 || ls.UplinkLinkQuality != 100 || ls.DownlinkSNR != 7 {
		t.Fatalf("link stats: %+v", pkts[0])
	}
	unk, ok := pkts[1].(Unknown)
	if !ok || unk.Type() != TypeBatterySensor || len(unk.Payload) != 8 {
		t.Fatalf("unknown: %+v", pkts[1])
	}
	if s := p.Stats(); s.Packets != 2 || s.UnknownFrames != 1 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestCRCMismatchResyncs(t *testing.T) {
	testlog.Start(t)
	bad := EncodeRcChannels(AddrFlightController, sampleChannels())
	bad[len(bad)-1] ^= 0x01
	good := EncodeRcChannels(AddrFlightController, sampleChannels())

	p := NewParser()
	p.Push(bad)
	p.Push(good)
	pkts, errs := drain(t, p)
	if len(pkts) != 1 {
		t.Fatalf("expected the good frame after the bad one, got %d", len(pkts))
	}
	if len(errs) == 0 || !errors.Is(errs[0], ErrCRCMismatch) {
		t.Fatalf("expected crc mismatch first, got %v", errs)
	}
}

func TestInvalidLengthAndGarbageSkipped(t *testing.T) {
	testlog.Start(t)
	p := NewParser()
	p.Push([]byte{0x01, 0x02, 0x03})
	p.Push([]byte{byte(AddrFlightController), 0x01})
	p.Push([]byte{byte(AddrFlightController), 0xFF})
	p.Push(EncodeRcChannels(AddrReceiver, sampleChannels()))

	pkts, errs := drain(t, p)
	if len(pkts) != 1 {
		t.Fatalf("pkts=%d errs=%v", len(pkts), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if s := p.Stats(); s.BadLength != 2 || s.SkippedBytes < 3 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestShortRcPayloadRejected(t *testing.T) {
	testlog.Start(t)
	frame, _ := EncodeFrame(AddrFlightController, TypeRcChannelsPacked, make([]byte, 10))
	p := NewParser()
	p.Push(frame)
	_, errs := drain(t, p)
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidPayload) {
		t.Fatalf("errs=%v", errs)
	}
}

func TestRingOverflowKeepsNewest(t *testing.T) {
	testlog.Start(t)
	p := NewParser()
	// 0x01 is not a CRSF address, so the filler is skipped rather than parsed.
	p.Push(bytes.Repeat([]byte{0x01}, RingSize-10))
	p.Push(EncodeRcChannels(AddrFlightController, sampleChannels()))
	if p.Buffered() != RingSize {
		t.Fatalf("buffered got=%d want=%d", p.Buffered(), RingSize)
	}
	if s := p.Stats(); s.Overflowed != 16 {
		t.Fatalf("overflowed got=%d want=16", s.Overflowed)
	}
	pkts, _ := drain(t, p)
	if len(pkts) != 1 {
		t.Fatalf("newest frame lost: pkts=%d", len(pkts))
	}
}
