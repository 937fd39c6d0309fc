package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/lintx/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultName        = "lintx"
	DefaultMetricsAddr = ":9470"
)

// DaemonConfig is the lintx.toml file read by `lintx serve`.
type DaemonConfig struct {
	Name    string         `toml:"name"`
	Log     LogConfig      `toml:"log"`
	Metrics MetricsConfig  `toml:"metrics"`
	Modules []ModuleConfig `toml:"modules"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type MetricsConfig struct {
	Disabled    bool     `toml:"disabled"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// ModuleConfig names one module instance and the arguments it is started
// with, exactly as they would follow `lintx run <name>`.
type ModuleConfig struct {
	Name string   `toml:"name"`
	Args []string `toml:"args"`
}

func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	cfg = withDefaults(cfg)
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func withDefaults(cfg DaemonConfig) DaemonConfig {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultName
	}
	if !cfg.Metrics.Disabled && strings.TrimSpace(cfg.Metrics.Addr) == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	return cfg
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("daemon config missing name")
	}
	if lvl := strings.TrimSpace(cfg.Log.Level); lvl != "" {
		if _, ok := logging.ParseLevel(lvl); !ok {
			return fmt.Errorf("log level %q is not recognized", lvl)
		}
	}
	if !cfg.Metrics.Disabled && strings.TrimSpace(cfg.Metrics.Addr) == "" {
		return fmt.Errorf("metrics addr is required unless metrics are disabled")
	}
	if len(cfg.Modules) == 0 {
		return fmt.Errorf("daemon config lists no modules")
	}
	for i, m := range cfg.Modules {
		if err := ValidateModuleEntry(m); err != nil {
			return fmt.Errorf("modules[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateModuleEntry(cfg ModuleConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	for _, a := range cfg.Args {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("module %s has an empty argument", cfg.Name)
		}
	}
	return nil
}
