package serialport

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Error kinds passed to PumpOptions.OnError.
const (
	KindTimeout = "timeout"
	KindRead    = "read"
)

// PumpOptions tunes Pump.
type PumpOptions struct {
	BufSize int
	// IdleSleep is slept after a read that returned nothing.
	IdleSleep time.Duration
	Backoff   BackoffConfig
	Logger    zerolog.Logger
	// OnError is told about every non-data read outcome.
	OnError func(kind string, err error)
}

func (o PumpOptions) withDefaults() PumpOptions {
	if o.BufSize <= 0 {
		o.BufSize = 64
	}
	if o.Backoff.InitialDelay <= 0 {
		o.Backoff = DefaultBackoff()
	}
	return o
}

// IsTimeout reports whether err is the benign "no bytes within the read
// timeout" outcome. A raw tty read that times out returns zero bytes, which
// os.File surfaces as io.EOF.
func IsTimeout(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)
}

// Pump reads src until ctx is done, handing every non-empty chunk to handle.
// Timeouts are ignored; other read errors are logged and retried after a
// backoff. The chunk passed to handle is only valid during the call.
func Pump(ctx context.Context, src io.Reader, opts PumpOptions, handle func([]byte)) error {
	opts = opts.withDefaults()
	buf := make([]byte, opts.BufSize)
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			attempt = 0
			handle(buf[:n])
		}
		switch {
		case err == nil:
			if n == 0 && opts.IdleSleep > 0 {
				if err := sleep(ctx, opts.IdleSleep); err != nil {
					return err
				}
			}
		case IsTimeout(err):
			report(opts, KindTimeout, err)
		default:
			attempt++
			report(opts, KindRead, err)
			opts.Logger.Warn().Err(err).Int("attempt", attempt).Msg("serialport.Pump read error")
			if err := sleep(ctx, NextBackoffDelay(opts.Backoff, attempt)); err != nil {
				return err
			}
		}
	}
}

func report(opts PumpOptions, kind string, err error) {
	if opts.OnError != nil {
		opts.OnError(kind, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
