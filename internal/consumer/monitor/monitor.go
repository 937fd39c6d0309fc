// Package monitor logs what is on the bus: the latest channel frame at a
// fixed rate, or every frame as it arrives.
package monitor

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/rs/zerolog"
)

const (
	Name      = "monitor"
	DefaultHz = 2
)

// Sample is one observed frame and the number of frames skipped before it.
type Sample struct {
	Frame  messages.ChannelFrame
	Missed uint64
}

// Poll checks sub once per interval with TryRead and reports new frames.
// Intervals with no new frame are skipped.
func Poll(ctx context.Context, sub *bus.Subscription[messages.ChannelFrame], interval time.Duration, report func(Sample)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		if frame, missed, ok := sub.TryReadMissed(); ok {
			report(Sample{Frame: frame, Missed: missed})
		}
	}
}

// Follow blocks on sub and reports every frame it is woken for.
func Follow(ctx context.Context, sub *bus.Subscription[messages.ChannelFrame], report func(Sample)) error {
	for {
		frame, missed, err := sub.ReadContextMissed(ctx)
		if err != nil {
			return err
		}
		report(Sample{Frame: frame, Missed: missed})
	}
}

func logSample(logger zerolog.Logger) func(Sample) {
	return func(s Sample) {
		v := s.Frame.Values
		logger.Info().
			Int16("ch0", v[0]).
			Int16("ch1", v[1]).
			Int16("ch2", v[2]).
			Int16("ch3", v[3]).
			Uint64("missed", s.Missed).
			Msg("monitor.frame")
	}
}

func Module() module.Module {
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Log channel frames from the bus"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	hz := fs.Uint("hz", DefaultHz, "log rate when not following")
	follow := fs.BoolP("follow", "f", false, "log every frame with blocking reads")
	status := fs.Bool("status", false, "also log system status changes")
	if err := module.ParseArgs(Name, fs, args); err != nil {
		return err
	}

	report := logSample(env.Logger)
	if *status {
		go watchStatus(ctx, env.Topics.SystemStatus.Subscribe(), env.Logger)
	}
	sub := env.Topics.Channels.Subscribe()
	if *follow {
		return Follow(ctx, sub, report)
	}
	return Poll(ctx, sub, time.Second/time.Duration(max(*hz, 1)), report)
}

func watchStatus(ctx context.Context, sub *bus.Subscription[messages.SystemStatus], logger zerolog.Logger) {
	for {
		st, err := sub.ReadContext(ctx)
		if err != nil {
			return
		}
		logger.Info().
			Uint8("remote_battery", st.RemoteBatteryPercent).
			Uint8("aircraft_battery", st.AircraftBatteryPercent).
			Uint8("signal", st.SignalStrengthPercent).
			Msg("monitor.status")
	}
}
