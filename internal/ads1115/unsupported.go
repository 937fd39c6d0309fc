//go:build !linux

package ads1115

import "errors"

var errUnsupported = errors.New("ads1115: i2c-dev and gpio character devices need linux")

type I2CDev struct{}

func OpenI2C(path string, addr uint16) (*I2CDev, error) { return nil, errUnsupported }

func (*I2CDev) WriteRegister(byte, uint16) error  { return errUnsupported }
func (*I2CDev) ReadRegister(byte) (uint16, error) { return 0, errUnsupported }
func (*I2CDev) Close() error                      { return nil }

type ReadyLine struct{}

func OpenReadyLine(chip string, offset int) (*ReadyLine, error) { return nil, errUnsupported }

func (*ReadyLine) Ready() <-chan struct{} { return nil }
func (*ReadyLine) Close() error           { return nil }
