// Package stm32serial reads joystick frames from the STM32 companion over a
// serial link and publishes them as channel frames.
package stm32serial

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
	"github.com/danmuck/lintx/internal/protocol/stm32"
	"github.com/danmuck/lintx/internal/serialport"
	"github.com/rs/zerolog"
)

const (
	Name        = "stm32_serial"
	DefaultBaud = 115200
	// Requested read timeout; the port rounds it up to its granularity.
	ReadTimeout = 10 * time.Millisecond
)

// Reader decodes one byte stream. It owns its decoder.
type Reader struct {
	src    io.Reader
	out    bus.Publisher[messages.ChannelFrame]
	dec    *stm32.Decoder
	drops  *observability.DropTracker
	logger zerolog.Logger
}

func NewReader(src io.Reader, out bus.Publisher[messages.ChannelFrame], logger zerolog.Logger) *Reader {
	return &Reader{
		src:    src,
		out:    out,
		dec:    stm32.NewDecoder(),
		drops:  observability.NewDropTracker(Name),
		logger: logger,
	}
}

// Run pumps src through the decoder until ctx is done.
func (r *Reader) Run(ctx context.Context) error {
	return serialport.Pump(ctx, r.src, serialport.PumpOptions{
		BufSize: 64,
		Logger:  r.logger,
		OnError: func(kind string, err error) {
			observability.RecordSerialError(Name, kind)
		},
	}, r.handle)
}

func (r *Reader) handle(chunk []byte) {
	before := r.dec.Stats().CRCErrors
	r.dec.Feed(chunk, func(v [4]int16) {
		r.out.Publish(messages.ChannelFrame{Values: v})
		observability.RecordFrame(Name)
	})
	st := r.dec.Stats()
	r.drops.Observe(map[string]uint64{
		"sync":        st.SyncDiscards,
		"bad_length":  st.BadLength,
		"crc":         st.CRCErrors,
		"unknown_tag": st.UnknownTags,
		"short":       st.ShortPackets,
	})
	if st.CRCErrors > before {
		r.logger.Debug().Uint64("crc_errors", st.CRCErrors).Msg("stm32serial.Reader.handle crc drops")
	}
}

// Stats exposes the decoder counters.
func (r *Reader) Stats() stm32.Stats {
	return r.dec.Stats()
}

// Module returns the registry entry. open is swapped in tests.
func Module(open serialport.Opener) module.Module {
	if open == nil {
		open = func(cfg serialport.Config) (io.ReadCloser, error) { return serialport.Open(cfg) }
	}
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Read joystick frames from the STM32 serial link"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, open, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, open serialport.Opener, out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	baud := fs.UintP("baudrate", "b", DefaultBaud, "serial baud rate")
	fs.Usage = func() {
		fmt.Fprintf(out, "usage: %s [--baudrate N] <device>\n", Name)
		fs.PrintDefaults()
	}
	if err := module.ParseArgs(Name, fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("%s: %w", Name, serialport.ErrNoDevice)
	}

	cfg := serialport.Config{Device: fs.Arg(0), Baud: *baud, ReadTimeout: ReadTimeout}
	port, err := open(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}
	defer port.Close()

	env.Logger.Info().Str("device", cfg.Device).Uint("baud", cfg.Baud).Msg("stm32serial.run started")
	return NewReader(port, env.Topics.Channels, env.Logger).Run(ctx)
}
