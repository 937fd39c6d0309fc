//go:build linux

package ads1115

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const i2cSlave = 0x0703

// I2CDev is a Bus over a Linux i2c-dev character device.
type I2CDev struct {
	f *os.File
}

// OpenI2C opens path (for example /dev/i2c-0) bound to the 7-bit addr.
func OpenI2C(path string, addr uint16) (*I2CDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ads1115: open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("ads1115: bind %s to 0x%02x: %w", path, addr, err)
	}
	return &I2CDev{f: f}, nil
}

func (d *I2CDev) WriteRegister(reg byte, v uint16) error {
	_, err := d.f.Write([]byte{reg, byte(v >> 8), byte(v)})
	return err
}

func (d *I2CDev) ReadRegister(reg byte) (uint16, error) {
	if _, err := d.f.Write([]byte{reg}); err != nil {
		return 0, err
	}
	var buf [2]byte
	if _, err := d.f.Read(buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (d *I2CDev) Close() error {
	return d.f.Close()
}
