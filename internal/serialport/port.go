package serialport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

var ErrNoDevice = errors.New("serialport: device path is required")

// termios VTIME counts tenths of a second.
const timeoutGranularity = 100 * time.Millisecond

// Config describes one serial device.
type Config struct {
	Device      string
	Baud        uint
	ReadTimeout time.Duration
}

// Opener opens a device; tests swap in an in-memory source.
type Opener func(Config) (io.ReadCloser, error)

// Open opens cfg.Device as 8N1 raw with a read that returns after at most
// ReadTimeout of line silence. Timeouts finer than the termios granularity
// are rounded up to it.
func Open(cfg Config) (io.ReadCloser, error) {
	device := strings.TrimSpace(cfg.Device)
	if device == "" {
		return nil, ErrNoDevice
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:              device,
		BaudRate:              cfg.Baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: InterCharacterTimeoutMS(cfg.ReadTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s @ %d: %w", device, cfg.Baud, err)
	}
	return port, nil
}

// InterCharacterTimeoutMS converts d to the millisecond value the serial
// driver accepts: a positive multiple of 100.
func InterCharacterTimeoutMS(d time.Duration) uint {
	if d <= timeoutGranularity {
		return uint(timeoutGranularity / time.Millisecond)
	}
	steps := (d + timeoutGranularity - 1) / timeoutGranularity
	return uint(steps * timeoutGranularity / time.Millisecond)
}
