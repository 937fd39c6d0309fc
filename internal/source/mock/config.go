package mock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	ModeStatic = "static"
	ModeSine   = "sine"
	ModeStep   = "step"

	DefaultMode           = ModeStatic
	DefaultUpdateRateHz   = 50
	DefaultStepDurationMS = 1000
)

// Config drives the synthetic generators. Slots missing from a vector are 0.
type Config struct {
	Mode         string
	UpdateRateHz uint32
	Static       StaticConfig
	Sine         SineConfig
	Step         StepConfig
}

type StaticConfig struct {
	Channels []int16 `toml:"channels" yaml:"channels"`
}

type SineConfig struct {
	Base        []int16   `toml:"base" yaml:"base"`
	Amplitude   []int16   `toml:"amplitude" yaml:"amplitude"`
	FrequencyHz []float64 `toml:"frequency_hz" yaml:"frequency_hz"`
}

type StepConfig struct {
	Values         [][]int16 `toml:"values" yaml:"values"`
	StepDurationMS uint64    `toml:"step_duration_ms" yaml:"step_duration_ms"`
}

func DefaultConfig() Config {
	return Config{
		Mode:         DefaultMode,
		UpdateRateHz: DefaultUpdateRateHz,
		Static:       StaticConfig{Channels: []int16{992, 992, 0, 992}},
		Sine: SineConfig{
			Base:        []int16{992, 992, 0, 992},
			Amplitude:   []int16{100, 100, 0, 100},
			FrequencyHz: []float64{1.0, 0.5, 0.0, 2.0},
		},
		Step: StepConfig{
			Values:         [][]int16{{0, 0, 0, 0}, {992, 992, 0, 992}, {1984, 1984, 1984, 1984}},
			StepDurationMS: DefaultStepDurationMS,
		},
	}
}

// fileConfig is the on-disk shape. Sections are pointers so a missing
// section can be told apart from an empty one; the short names are aliases.
type fileConfig struct {
	Mode         string        `toml:"mode" yaml:"mode"`
	UpdateRateHz uint32        `toml:"update_rate_hz" yaml:"update_rate_hz"`
	StaticConfig *StaticConfig `toml:"static_config" yaml:"static_config"`
	Static       *StaticConfig `toml:"static" yaml:"static"`
	SineConfig   *SineConfig   `toml:"sine_config" yaml:"sine_config"`
	Sine         *SineConfig   `toml:"sine" yaml:"sine"`
	StepConfig   *StepConfig   `toml:"step_config" yaml:"step_config"`
	Step         *StepConfig   `toml:"step" yaml:"step"`
}

// LoadConfig reads path as TOML, or YAML for .yaml/.yml. It never fails: a
// missing or unparsable file yields DefaultConfig, and the reason is logged.
func LoadConfig(path string, logger zerolog.Logger) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("mock.LoadConfig file not readable, using defaults")
		return DefaultConfig()
	}
	cfg, err := ParseConfig(data, formatOf(path), logger)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("mock.LoadConfig parse failed, using defaults")
		return DefaultConfig()
	}
	logger.Info().Str("path", path).Msg("mock.LoadConfig loaded")
	return cfg
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// ParseConfig decodes data in the given format ("toml" or "yaml") and fills
// every absent key from DefaultConfig.
func ParseConfig(data []byte, format string, logger zerolog.Logger) (Config, error) {
	var fc fileConfig
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("mock: yaml: %w", err)
		}
	default:
		meta, err := toml.Decode(string(data), &fc)
		if err != nil {
			return Config{}, fmt.Errorf("mock: toml: %w", err)
		}
		for _, key := range meta.Undecoded() {
			logger.Warn().Str("key", key.String()).Msg("mock.ParseConfig ignoring unknown key")
		}
	}
	return fc.resolve(), nil
}

func (fc fileConfig) resolve() Config {
	cfg := DefaultConfig()
	if m := strings.TrimSpace(fc.Mode); m != "" {
		cfg.Mode = m
	}
	if fc.UpdateRateHz > 0 {
		cfg.UpdateRateHz = fc.UpdateRateHz
	}
	if s := pick(fc.StaticConfig, fc.Static); s != nil && s.Channels != nil {
		cfg.Static.Channels = s.Channels
	}
	if s := pick(fc.SineConfig, fc.Sine); s != nil {
		if s.Base != nil {
			cfg.Sine.Base = s.Base
		}
		if s.Amplitude != nil {
			cfg.Sine.Amplitude = s.Amplitude
		}
		if s.FrequencyHz != nil {
			cfg.Sine.FrequencyHz = s.FrequencyHz
		}
	}
	if s := pick(fc.StepConfig, fc.Step); s != nil {
		if s.Values != nil {
			cfg.Step.Values = s.Values
		}
		if s.StepDurationMS > 0 {
			cfg.Step.StepDurationMS = s.StepDurationMS
		}
	}
	return cfg
}

func pick[T any](primary, alias *T) *T {
	if primary != nil {
		return primary
	}
	return alias
}
