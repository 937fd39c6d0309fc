// Package messages owns the typed payloads carried on the bus and the names
// of the topics that carry them.
package messages

import "github.com/danmuck/lintx/internal/bus"

const (
	TopicChannels     = "adc_raw"
	TopicSystemStatus = "system_status"
	TopicSystemConfig = "system_config"
)

// ChannelFrame is the canonical four-axis pilot input sample. Values are
// positional and keep the producer's native range (12-bit ADC codes, 11-bit
// CRSF codes, synthetic values); scaling belongs to the consumer.
type ChannelFrame struct {
	Values [4]int16 `msgpack:"v"`
}

// SystemStatus is the link/battery summary shown by the display.
type SystemStatus struct {
	RemoteBatteryPercent   uint8
	AircraftBatteryPercent uint8
	SignalStrengthPercent  uint8
	UnixTimeSecs           uint64
}

func DefaultSystemStatus() SystemStatus {
	return SystemStatus{
		RemoteBatteryPercent:   100,
		AircraftBatteryPercent: 100,
		SignalStrengthPercent:  100,
	}
}

// SystemConfig carries user-adjustable device settings.
type SystemConfig struct {
	BacklightPercent uint8
	SoundPercent     uint8
}

func DefaultSystemConfig() SystemConfig {
	return SystemConfig{BacklightPercent: 70, SoundPercent: 60}
}

// Topics is the typed view of every topic a process uses.
type Topics struct {
	Channels     *bus.Topic[ChannelFrame]
	SystemStatus *bus.Topic[SystemStatus]
	SystemConfig *bus.Topic[SystemConfig]
}

// Register creates every known topic on reg. It is the single place topics
// come into existence; call it once at startup.
func Register(reg *bus.Registry) (Topics, error) {
	ch, err := bus.Register[ChannelFrame](reg, TopicChannels)
	if err != nil {
		return Topics{}, err
	}
	status, err := bus.Register[SystemStatus](reg, TopicSystemStatus)
	if err != nil {
		return Topics{}, err
	}
	cfg, err := bus.Register[SystemConfig](reg, TopicSystemConfig)
	if err != nil {
		return Topics{}, err
	}
	return Topics{Channels: ch, SystemStatus: status, SystemConfig: cfg}, nil
}
