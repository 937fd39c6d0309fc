package adc

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/danmuck/lintx/internal/ads1115"
	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

type fakeConverter struct {
	configureErr error
	readings     [4]int16
	failAfter    int // reads before failing; 0 never fails
	reads        int
	fsr          ads1115.FullScaleRange
	rate         ads1115.DataRate
	order        []ads1115.Channel
	closed       bool
}

func (c *fakeConverter) Configure(fsr ads1115.FullScaleRange, rate ads1115.DataRate) error {
	c.fsr, c.rate = fsr, rate
	return c.configureErr
}

func (c *fakeConverter) Read(ctx context.Context, ch ads1115.Channel) (int16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.reads++
	if c.failAfter > 0 && c.reads > c.failAfter {
		return 0, errors.New("i2c: remote I/O error")
	}
	c.order = append(c.order, ch)
	return c.readings[ch], nil
}

func (c *fakeConverter) Close() error {
	c.closed = true
	return nil
}

func TestSamplerPublishesShiftedFrames(t *testing.T) {
	testlog.Start(t)
	topic := bus.NewTopic[messages.ChannelFrame]("adc_raw")
	sub := topic.Subscribe()
	conv := &fakeConverter{readings: [4]int16{32767, 16, -16, -32768}, failAfter: 8}

	err := NewSampler(conv, topic, zerolog.Nop()).Run(context.Background())
	if err == nil {
		t.Fatalf("expected steady-state read failure to end the run")
	}
	if conv.fsr != ads1115.Range4_096V || conv.rate != ads1115.Rate860SPS {
		t.Fatalf("configured fsr=%d rate=%d", conv.fsr, conv.rate)
	}
	frame, ok := sub.TryRead()
	if !ok {
		t.Fatalf("expected a published frame")
	}
	want := [4]int16{2047, 1, -1, -2048}
	if frame.Values != want {
		t.Fatalf("frame got=%v want=%v", frame.Values, want)
	}
	if topic.Stats().Published != 2 {
		t.Fatalf("published got=%d want=2", topic.Stats().Published)
	}
	for i, ch := range conv.order {
		if ch != ads1115.Channel(i%4) {
			t.Fatalf("read order %v", conv.order)
		}
	}
}

func TestSamplerConfigureFailureIsFatal(t *testing.T) {
	testlog.Start(t)
	topic := bus.NewTopic[messages.ChannelFrame]("adc_raw")
	conv := &fakeConverter{configureErr: errors.New("no ack")}
	err := NewSampler(conv, topic, zerolog.Nop()).Run(context.Background())
	if !errors.Is(err, conv.configureErr) {
		t.Fatalf("expected configure error, got %v", err)
	}
	if conv.reads != 0 || topic.Stats().Published != 0 {
		t.Fatalf("nothing should be sampled after a configure failure")
	}
}

func TestSamplerStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	topic := bus.NewTopic[messages.ChannelFrame]("adc_raw")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewSampler(&fakeConverter{}, topic, zerolog.Nop()).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestModuleParsesFlagsAndCloses(t *testing.T) {
	testlog.Start(t)
	reg := bus.NewRegistry()
	topics, err := messages.Register(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	env := module.Env{Bus: reg, Topics: topics, Logger: zerolog.Nop()}

	conv := &fakeConverter{failAfter: 4}
	var got Options
	open := func(o Options) (Converter, error) {
		got = o
		return conv, nil
	}
	args := []string{"--device", "/dev/i2c-1", "--addr", "73", "--ready-chip", "gpiochip0", "--ready-line", "17"}
	if err := run(context.Background(), env, args, open, io.Discard); err == nil {
		t.Fatalf("expected read failure")
	}
	want := Options{Device: "/dev/i2c-1", Address: 73, ReadyChip: "gpiochip0", ReadyLine: 17}
	if got != want {
		t.Fatalf("options got=%+v want=%+v", got, want)
	}
	if !conv.closed {
		t.Fatalf("converter not closed")
	}
	if topics.Channels.Stats().Published != 1 {
		t.Fatalf("expected one frame on %s", messages.TopicChannels)
	}

	openErr := errors.New("no such file")
	err = run(context.Background(), env, nil, func(Options) (Converter, error) { return nil, openErr }, io.Discard)
	if !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}
}
