package mock

import (
	"errors"
	"math"
	"time"

	"github.com/danmuck/lintx/internal/messages"
)

const (
	sineMin = -2048
	sineMax = 2047
	// The sine clock wraps to keep float precision over long runs.
	sineWrap = 1000.0
)

var ErrNoSteps = errors.New("mock: step mode has no values")

// Generator yields one frame per tick. Implementations are deterministic and
// hold no clock of their own.
type Generator interface {
	Next() messages.ChannelFrame
}

// TickInterval is the publish period for rate, truncated to whole
// milliseconds. A zero rate is treated as the default.
func TickInterval(rateHz uint32) time.Duration {
	if rateHz == 0 {
		rateHz = DefaultUpdateRateHz
	}
	ms := 1000 / rateHz
	if ms == 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// NewGenerator builds the generator for cfg.Mode, falling back to static for
// an unknown mode. The second result is the mode actually used.
func NewGenerator(cfg Config) (Generator, string, error) {
	interval := TickInterval(cfg.UpdateRateHz)
	switch cfg.Mode {
	case ModeSine:
		return NewSine(cfg.Sine, interval), ModeSine, nil
	case ModeStep:
		g, err := NewStep(cfg.Step, interval)
		return g, ModeStep, err
	default:
		return NewStatic(cfg.Static), ModeStatic, nil
	}
}

type Static struct {
	frame messages.ChannelFrame
}

func NewStatic(cfg StaticConfig) *Static {
	return &Static{frame: messages.ChannelFrame{Values: vector(cfg.Channels)}}
}

func (g *Static) Next() messages.ChannelFrame {
	return g.frame
}

// Sine produces base + round(amplitude * sin(2*pi*f*t)) per slot, clamped.
type Sine struct {
	base, amplitude, freq [4]float64
	t, dt                 float64
}

func NewSine(cfg SineConfig, interval time.Duration) *Sine {
	g := &Sine{dt: interval.Seconds()}
	for i := 0; i < 4; i++ {
		g.base[i] = float64(at(cfg.Base, i))
		g.amplitude[i] = float64(at(cfg.Amplitude, i))
		g.freq[i] = at(cfg.FrequencyHz, i)
	}
	return g
}

func (g *Sine) Next() messages.ChannelFrame {
	var f messages.ChannelFrame
	for i := 0; i < 4; i++ {
		v := g.base[i] + math.Round(g.amplitude[i]*math.Sin(2*math.Pi*g.freq[i]*g.t))
		f.Values[i] = int16(math.Max(sineMin, math.Min(sineMax, v)))
	}
	g.t += g.dt
	if g.t > sineWrap {
		g.t -= sineWrap
	}
	return f
}

// Step holds each configured vector for ceil(duration/interval) ticks, then
// moves to the next, wrapping at the end.
type Step struct {
	values []messages.ChannelFrame
	hold   int
	idx    int
	count  int
}

func NewStep(cfg StepConfig, interval time.Duration) (*Step, error) {
	if len(cfg.Values) == 0 {
		return nil, ErrNoSteps
	}
	g := &Step{values: make([]messages.ChannelFrame, len(cfg.Values))}
	for i, v := range cfg.Values {
		g.values[i] = messages.ChannelFrame{Values: vector(v)}
	}
	ms := interval.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	g.hold = int((int64(cfg.StepDurationMS) + ms - 1) / ms)
	if g.hold < 1 {
		g.hold = 1
	}
	return g, nil
}

// Hold is the number of ticks each vector is repeated.
func (g *Step) Hold() int {
	return g.hold
}

func (g *Step) Next() messages.ChannelFrame {
	f := g.values[g.idx]
	g.count++
	if g.count >= g.hold {
		g.count = 0
		g.idx = (g.idx + 1) % len(g.values)
	}
	return f
}

func vector(in []int16) [4]int16 {
	var out [4]int16
	copy(out[:], in)
	return out
}

func at[T int16 | float64](s []T, i int) T {
	if i < len(s) {
		return s[i]
	}
	var zero T
	return zero
}
