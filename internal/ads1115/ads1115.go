// Package ads1115 drives a TI ADS1115 16-bit converter in single-shot mode.
package ads1115

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultAddress = 0x48

const (
	regConversion = 0x00
	regConfig     = 0x01
	regLoThresh   = 0x02
	regHiThresh   = 0x03
)

// Config register fields.
const (
	cfgOS        = 1 << 15
	cfgMuxShift  = 12
	cfgPGAShift  = 9
	cfgModeOnce  = 1 << 8
	cfgDRShift   = 5
	cfgQueAssert = 0b00
	cfgQueOff    = 0b11
)

// FullScaleRange selects the programmable gain amplifier setting.
type FullScaleRange uint16

const (
	Range6_144V FullScaleRange = iota
	Range4_096V
	Range2_048V
	Range1_024V
	Range0_512V
	Range0_256V
)

// DataRate selects samples per second.
type DataRate uint16

const (
	Rate8SPS DataRate = iota
	Rate16SPS
	Rate32SPS
	Rate64SPS
	Rate128SPS
	Rate250SPS
	Rate475SPS
	Rate860SPS
)

var sampleRates = [...]int{8, 16, 32, 64, 128, 250, 475, 860}

// ConversionTime is one conversion period at r.
func (r DataRate) ConversionTime() time.Duration {
	if int(r) >= len(sampleRates) {
		return 0
	}
	return time.Second / time.Duration(sampleRates[r])
}

// Channel is a single-ended input.
type Channel int

const (
	AIN0 Channel = iota
	AIN1
	AIN2
	AIN3
)

var (
	ErrNotConfigured = errors.New("ads1115: not configured")
	ErrInvalidInput  = errors.New("ads1115: invalid channel")
	ErrInvalidConfig = errors.New("ads1115: invalid range or rate")
	ErrTimeout       = errors.New("ads1115: conversion did not complete")
)

// Bus is register-level access to one device.
type Bus interface {
	WriteRegister(reg byte, v uint16) error
	ReadRegister(reg byte) (uint16, error)
	Close() error
}

// ReadySignal delivers one value per completed conversion, typically from the
// ALERT/RDY pin.
type ReadySignal interface {
	Ready() <-chan struct{}
	Close() error
}

// Device is not safe for concurrent use.
type Device struct {
	bus   Bus
	ready ReadySignal

	configured bool
	base       uint16
	convTime   time.Duration
}

// New wraps bus. ready may be nil, in which case completion is polled from
// the config register.
func New(bus Bus, ready ReadySignal) *Device {
	return &Device{bus: bus, ready: ready}
}

// Configure sets range and rate and, with a ready signal, arms ALERT/RDY as a
// conversion-ready output.
func (d *Device) Configure(fsr FullScaleRange, rate DataRate) error {
	if fsr > Range0_256V || rate > Rate860SPS {
		return ErrInvalidConfig
	}
	que := uint16(cfgQueOff)
	if d.ready != nil {
		// Hi_thresh MSB set and Lo_thresh MSB clear turns ALERT into RDY.
		if err := d.bus.WriteRegister(regHiThresh, 0x8000); err != nil {
			return fmt.Errorf("ads1115: write hi threshold: %w", err)
		}
		if err := d.bus.WriteRegister(regLoThresh, 0x0000); err != nil {
			return fmt.Errorf("ads1115: write lo threshold: %w", err)
		}
		que = cfgQueAssert
	}
	base := uint16(fsr)<<cfgPGAShift | cfgModeOnce | uint16(rate)<<cfgDRShift | que
	if err := d.bus.WriteRegister(regConfig, base); err != nil {
		return fmt.Errorf("ads1115: write config: %w", err)
	}
	d.base = base
	d.convTime = rate.ConversionTime()
	d.configured = true
	return nil
}

// Read runs one single-ended conversion on ch and blocks until it completes.
func (d *Device) Read(ctx context.Context, ch Channel) (int16, error) {
	if !d.configured {
		return 0, ErrNotConfigured
	}
	if ch < AIN0 || ch > AIN3 {
		return 0, ErrInvalidInput
	}
	if d.ready != nil {
		drain(d.ready.Ready())
	}
	mux := uint16(0b100|ch) << cfgMuxShift
	if err := d.bus.WriteRegister(regConfig, d.base|mux|cfgOS); err != nil {
		return 0, fmt.Errorf("ads1115: start conversion: %w", err)
	}
	if err := d.wait(ctx); err != nil {
		return 0, err
	}
	raw, err := d.bus.ReadRegister(regConversion)
	if err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return int16(raw), nil
}

func (d *Device) Close() error {
	var readyErr error
	if d.ready != nil {
		readyErr = d.ready.Close()
	}
	return errors.Join(d.bus.Close(), readyErr)
}

// wait gives up after ten conversion periods.
func (d *Device) wait(ctx context.Context) error {
	limit := 10 * d.convTime
	if d.ready != nil {
		t := time.NewTimer(limit)
		defer t.Stop()
		select {
		case <-d.ready.Ready():
			return nil
		case <-t.C:
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	poll := d.convTime / 4
	if poll <= 0 {
		poll = time.Millisecond
	}
	deadline := time.Now().Add(limit)
	for {
		v, err := d.bus.ReadRegister(regConfig)
		if err != nil {
			return fmt.Errorf("ads1115: poll config: %w", err)
		}
		// OS reads 1 once the device is idle again.
		if v&cfgOS != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		t := time.NewTimer(poll)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
