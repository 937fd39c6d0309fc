package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
)

const (
	RecordName = "record"
	ReplayName = "replay"
)

func RecordModule() module.Module {
	return module.Func{
		Meta: module.Metadata{Name: RecordName, Description: "Record channel frames to a msgpack file"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return runRecord(ctx, env, args, os.Stderr)
		},
	}
}

func ReplayModule() module.Module {
	return module.Func{
		Meta: module.Metadata{Name: ReplayName, Description: "Replay a recorded msgpack file onto the bus"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return runReplay(ctx, env, args, os.Stderr)
		},
	}
}

func runRecord(ctx context.Context, env module.Env, args []string, out io.Writer) error {
	fs := module.NewFlagSet(RecordName, out)
	path := fs.StringP("out", "o", "", "output file")
	if err := module.ParseArgs(RecordName, fs, args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%s: --out is required", RecordName)
	}
	f, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("%s: %w", RecordName, err)
	}
	defer f.Close()

	w, err := NewWriter(f, messages.TopicChannels, time.Now())
	if err != nil {
		return err
	}
	env.Logger.Info().Str("path", *path).Msg("record.run capturing")
	err = Capture(ctx, env.Topics.Channels.Subscribe(), w, time.Now)
	if errors.Is(err, ErrFlush) {
		// Reported without the cancellation so the stop is not taken as clean.
		env.Logger.Error().Err(err).Str("path", *path).Int("frames", w.Count()).Msg("record.run recording truncated")
		return fmt.Errorf("%s: %s: %w", RecordName, *path, ErrFlush)
	}
	env.Logger.Info().Int("frames", w.Count()).Msg("record.run stopped")
	return err
}

func runReplay(ctx context.Context, env module.Env, args []string, out io.Writer) error {
	fs := module.NewFlagSet(ReplayName, out)
	path := fs.StringP("in", "i", "", "recording to play")
	speed := fs.Float64("speed", 1, "playback speed multiplier")
	loop := fs.Bool("loop", false, "restart at the end of the recording")
	if err := module.ParseArgs(ReplayName, fs, args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%s: --in is required", ReplayName)
	}

	for {
		if err := replayOnce(ctx, env, *path, *speed); err != nil {
			return err
		}
		if !*loop {
			return nil
		}
	}
}

func replayOnce(ctx context.Context, env module.Env, path string, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", ReplayName, err)
	}
	defer f.Close()
	r, err := NewReader(f)
	if err != nil {
		return err
	}
	env.Logger.Info().Str("path", path).Time("recorded", r.Header().Started).Float64("speed", speed).Msg("record.replay started")
	return Play(ctx, r, speed, countingPublisher{env: env})
}

type countingPublisher struct {
	env module.Env
}

func (p countingPublisher) Publish(f messages.ChannelFrame) {
	p.env.Topics.Channels.Publish(f)
	observability.RecordFrame(ReplayName)
}
