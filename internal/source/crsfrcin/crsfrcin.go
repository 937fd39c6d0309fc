// Package crsfrcin turns CRSF RC-channel packets into channel frames.
package crsfrcin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
	"github.com/danmuck/lintx/internal/protocol/crsf"
	"github.com/danmuck/lintx/internal/serialport"
	"github.com/rs/zerolog"
)

const (
	Name        = "crsf_rc_in"
	DefaultBaud = 420000
	ReadTimeout = 100 * time.Millisecond
)

// Remap places CRSF channels in frame slots. The link sends AETR; frame
// slots are throttle, rudder, aileron, elevator.
func Remap(ch [crsf.NumChannels]uint16) messages.ChannelFrame {
	var f messages.ChannelFrame
	f.Values[0] = int16(ch[2])
	f.Values[1] = int16(ch[3])
	f.Values[2] = int16(ch[0])
	f.Values[3] = int16(ch[1])
	return f
}

// Reader parses one CRSF byte stream.
type Reader struct {
	src    io.Reader
	out    bus.Publisher[messages.ChannelFrame]
	parser *crsf.Parser
	drops  *observability.DropTracker
	logger zerolog.Logger
}

func NewReader(src io.Reader, out bus.Publisher[messages.ChannelFrame], logger zerolog.Logger) *Reader {
	return &Reader{
		src:    src,
		out:    out,
		parser: crsf.NewParser(),
		drops:  observability.NewDropTracker(Name),
		logger: logger,
	}
}

func (r *Reader) Run(ctx context.Context) error {
	return serialport.Pump(ctx, r.src, serialport.PumpOptions{
		BufSize:   1024,
		IdleSleep: 5 * time.Millisecond,
		Logger:    r.logger,
		OnError: func(kind string, err error) {
			observability.RecordSerialError(Name, kind)
		},
	}, r.handle)
}

func (r *Reader) handle(chunk []byte) {
	r.parser.Push(chunk)
	for {
		pkt, err := r.parser.Next()
		if errors.Is(err, crsf.ErrNeedMoreData) {
			break
		}
		if err != nil {
			r.logger.Debug().Err(err).Msg("crsfrcin.Reader.handle dropped packet")
			continue
		}
		if rc, ok := pkt.(crsf.RcChannels); ok {
			r.out.Publish(Remap(rc.Channels))
			observability.RecordFrame(Name)
		}
	}
	st := r.parser.Stats()
	r.drops.Observe(map[string]uint64{
		"skipped":     st.SkippedBytes,
		"overflow":    st.Overflowed,
		"bad_length":  st.BadLength,
		"crc":         st.CRCErrors,
		"bad_payload": st.BadPayloads,
	})
}

func (r *Reader) Stats() crsf.ParserStats {
	return r.parser.Stats()
}

// Module returns the registry entry. open is swapped in tests.
func Module(open serialport.Opener) module.Module {
	if open == nil {
		open = func(cfg serialport.Config) (io.ReadCloser, error) { return serialport.Open(cfg) }
	}
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Read RC channels from a CRSF receiver link"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, open, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, open serialport.Opener, out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	baud := fs.UintP("baudrate", "b", DefaultBaud, "serial baud rate (CRSF links also run at 115200)")
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
		env.Logger.Error().Err(err).Str("device", cfg.Device).Msg("crsfrcin.run open failed")
		return fmt.Errorf("%s: %w", Name, err)
	}
	defer port.Close()

	env.Logger.Info().Str("device", cfg.Device).Uint("baud", cfg.Baud).Msg("crsfrcin.run started")
	return NewReader(port, env.Topics.Channels, env.Logger).Run(ctx)
}
