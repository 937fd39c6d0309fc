// Package mock publishes synthetic channel frames (static, sine or step) so
// downstream consumers can run without hardware.
package mock

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
)

const (
	Name              = "mock_joystick"
	DefaultConfigPath = "mock_config.toml"
)

// Drive publishes gen.Next() now and then once per interval until ctx is
// done. Publish order follows generation order.
func Drive(ctx context.Context, gen Generator, interval time.Duration, out bus.Publisher[messages.ChannelFrame]) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		out.Publish(gen.Next())
		observability.RecordFrame(Name)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func Module() module.Module {
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Publish synthetic stick values (static, sine or step)"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	path := fs.StringP("config", "c", DefaultConfigPath, "generator config (.toml, .yaml or .yml)")
	if err := module.ParseArgs(Name, fs, args); err != nil {
		return err
	}

	cfg := LoadConfig(*path, env.Logger)
	if cfg.Mode != ModeStatic && cfg.Mode != ModeSine && cfg.Mode != ModeStep {
		env.Logger.Warn().Str("mode", cfg.Mode).Msg("mock.run unknown mode, falling back to static")
	}
	gen, mode, err := NewGenerator(cfg)
	if errors.Is(err, ErrNoSteps) {
		env.Logger.Warn().Msg("mock.run step mode has no values configured, exiting")
		return nil
	}
	if err != nil {
		return err
	}

	interval := TickInterval(cfg.UpdateRateHz)
	event := env.Logger.Info().Str("mode", mode).Uint32("rate_hz", cfg.UpdateRateHz)
	switch g := gen.(type) {
	case *Static:
		event = event.Interface("channels", g.frame.Values)
	case *Step:
		event = event.Int("steps", len(cfg.Step.Values)).Uint64("step_ms", cfg.Step.StepDurationMS)
	case *Sine:
		event = event.Interface("base", cfg.Sine.Base).Interface("amplitude", cfg.Sine.Amplitude).Interface("frequency_hz", cfg.Sine.FrequencyHz)
	}
	event.Msg("mock.run started")

	return Drive(ctx, gen, interval, env.Topics.Channels)
}
