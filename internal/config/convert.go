package config

import (
	"strings"

	"github.com/danmuck/lintx/internal/logging"
)

// Override returns the logging override for this section. Environment
// variables still win over it.
func (c LogConfig) Override() func(*logging.Config) {
	return func(cfg *logging.Config) {
		if lvl, ok := logging.ParseLevel(c.Level); ok {
			cfg.Level = lvl
		}
		if f := strings.TrimSpace(c.File); f != "" {
			cfg.File = f
		}
	}
}
