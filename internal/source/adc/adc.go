// Package adc samples four single-ended analog inputs and publishes them as
// one channel frame per cycle.
package adc

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/lintx/internal/ads1115"
	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
	"github.com/rs/zerolog"
)

const Name = "adc"

// Converter is the analog front end. *ads1115.Device satisfies it.
type Converter interface {
	Configure(fsr ads1115.FullScaleRange, rate ads1115.DataRate) error
	Read(ctx context.Context, ch ads1115.Channel) (int16, error)
	Close() error
}

// Sampler owns one converter and the publish side of the channel topic.
type Sampler struct {
	conv   Converter
	out    bus.Publisher[messages.ChannelFrame]
	logger zerolog.Logger
}

func NewSampler(conv Converter, out bus.Publisher[messages.ChannelFrame], logger zerolog.Logger) *Sampler {
	return &Sampler{conv: conv, out: out, logger: logger}
}

// Run configures the converter once and then samples AIN0..AIN3 in order,
// publishing each full cycle. Configuration and conversion errors end the run.
func (s *Sampler) Run(ctx context.Context) error {
	if err := s.conv.Configure(ads1115.Range4_096V, ads1115.Rate860SPS); err != nil {
		return fmt.Errorf("adc: configure: %w", err)
	}
	s.logger.Info().Msg("adc.Sampler.Run started")
	for {
		frame, err := s.sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.out.Publish(frame)
		observability.RecordFrame(Name)
	}
}

func (s *Sampler) sample(ctx context.Context) (messages.ChannelFrame, error) {
	var frame messages.ChannelFrame
	for ch := ads1115.AIN0; ch <= ads1115.AIN3; ch++ {
		v, err := s.conv.Read(ctx, ch)
		if err != nil {
			return frame, fmt.Errorf("adc: read AIN%d: %w", ch, err)
		}
		// Keep the top 12 bits; the shift is arithmetic.
		frame.Values[ch] = v >> 4
	}
	return frame, nil
}

// Options selects the hardware the module opens.
type Options struct {
	Device    string
	Address   uint16
	ReadyChip string
	ReadyLine int
}

// OpenConverter builds the ADS1115 converter described by opts.
func OpenConverter(opts Options) (Converter, error) {
	i2c, err := ads1115.OpenI2C(opts.Device, opts.Address)
	if err != nil {
		return nil, err
	}
	var ready ads1115.ReadySignal
	if opts.ReadyChip != "" && opts.ReadyLine >= 0 {
		line, err := ads1115.OpenReadyLine(opts.ReadyChip, opts.ReadyLine)
		if err != nil {
			i2c.Close()
			return nil, err
		}
		ready = line
	}
	return ads1115.New(i2c, ready), nil
}

// Module returns the registry entry. open is swapped in tests.
func Module(open func(Options) (Converter, error)) module.Module {
	if open == nil {
		open = OpenConverter
	}
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Sample four analog sticks from an ADS1115 over i2c"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, open, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, open func(Options) (Converter, error), out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	var opts Options
	fs.StringVar(&opts.Device, "device", "/dev/i2c-0", "i2c-dev character device")
	fs.Uint16Var(&opts.Address, "addr", ads1115.DefaultAddress, "7-bit i2c address")
	fs.StringVar(&opts.ReadyChip, "ready-chip", "", "gpio chip carrying ALERT/RDY (empty polls the device)")
	fs.IntVar(&opts.ReadyLine, "ready-line", -1, "gpio line offset of ALERT/RDY")
	if err := module.ParseArgs(Name, fs, args); err != nil {
		return err
	}

	conv, err := open(opts)
	if err != nil {
		return fmt.Errorf("adc: open: %w", err)
	}
	defer conv.Close()

	env.Logger.Info().Str("device", opts.Device).Uint16("addr", opts.Address).Msg("adc.run opened converter")
	return NewSampler(conv, env.Topics.Channels, env.Logger).Run(ctx)
}
