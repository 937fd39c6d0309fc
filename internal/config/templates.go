package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon", "lintx":
		return daemonTemplate, nil
	case "mock":
		return mockTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `name = "lintx"

[log]
level = "info"
# file = "/var/log/lintx.log"

[metrics]
addr = ":9470"
cors_origins = ["http://localhost:3000"]

[[modules]]
name = "mock_joystick"
args = ["--config", "mock_config.toml"]

[[modules]]
name = "system_state_mock"
args = ["--hz", "5"]

[[modules]]
name = "monitor"
args = ["--hz", "2"]
`

const mockTemplate = `mode = "sine"
update_rate_hz = 50

[static_config]
channels = [992, 992, 0, 992]

[sine_config]
base = [992, 992, 0, 992]
amplitude = [100, 100, 0, 100]
frequency_hz = [1.0, 0.5, 0.0, 2.0]

[step_config]
values = [[0, 0, 0, 0], [992, 992, 0, 992], [1984, 1984, 1984, 1984]]
step_duration_ms = 1000
`
