// Package systemstate publishes synthetic link, battery and settings values
// for display development.
package systemstate

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
)

const (
	Name      = "system_state_mock"
	DefaultHz = 5
)

// At returns the synthetic status and config for tick.
func At(tick uint64, now time.Time) (messages.SystemStatus, messages.SystemConfig) {
	status := messages.SystemStatus{
		RemoteBatteryPercent:   uint8(100 - (tick/10)%100),
		AircraftBatteryPercent: uint8(95 - (tick/15)%90),
		SignalStrengthPercent:  uint8(min(60+tick%40, 100)),
		UnixTimeSecs:           uint64(max(now.Unix(), 0)),
	}
	cfg := messages.SystemConfig{
		BacklightPercent: uint8(min(40+tick%50, 100)),
		SoundPercent:     uint8(min(30+(tick*3)%60, 100)),
	}
	return status, cfg
}

// Publisher drives both topics from a tick counter.
type Publisher struct {
	Status bus.Publisher[messages.SystemStatus]
	Config bus.Publisher[messages.SystemConfig]
	Now    func() time.Time
}

func (p Publisher) Run(ctx context.Context, interval time.Duration) error {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for tick := uint64(0); ; tick++ {
		status, cfg := At(tick, now())
		p.Status.Publish(status)
		p.Config.Publish(cfg)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func Module() module.Module {
	return module.Func{
		Meta: module.Metadata{Name: Name, Description: "Publish synthetic system status and config"},
		Fn: func(ctx context.Context, env module.Env, args []string) error {
			return run(ctx, env, args, os.Stderr)
		},
	}
}

func run(ctx context.Context, env module.Env, args []string, out io.Writer) error {
	fs := module.NewFlagSet(Name, out)
	hz := fs.Uint32("hz", DefaultHz, "publish rate")
	if err := module.ParseArgs(Name, fs, args); err != nil {
		return err
	}
	interval := time.Second / time.Duration(max(*hz, 1))
	env.Logger.Info().Uint32("hz", *hz).Msg("systemstate.run started")
	return Publisher{Status: env.Topics.SystemStatus, Config: env.Topics.SystemConfig}.Run(ctx, interval)
}
