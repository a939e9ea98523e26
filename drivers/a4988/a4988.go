// Package a4988 drives an A4988-style step/dir stepper driver chip through
// three GPIO handles. The chip advances one microstep per rising edge on the
// step pin; the microstep multiplier is set in hardware by the MSx straps, so
// positions here are already in microstep pulses.
package a4988

import (
	"stagecode-go/hal"
)

type Config struct {
	// InvertDir flips the direction pin sense for mirrored mechanics.
	InvertDir bool
}

type Driver struct {
	step, dir, en hal.GPIOHandle
	cfg           Config
	enabled       bool
	dirLevel      bool
}

// New configures the three pins and leaves the chip disabled (enable is
// active low on the A4988).
func New(step, dir, en hal.GPIOHandle, cfg Config) (*Driver, error) {
	if err := step.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if err := dir.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if err := en.ConfigureOutput(true); err != nil {
		return nil, err
	}
	return &Driver{step: step, dir: dir, en: en, cfg: cfg}, nil
}

// SetEnabled powers the output stage. Disabled chips ignore step edges.
func (d *Driver) SetEnabled(on bool) {
	d.enabled = on
	d.en.Set(!on) // active low
}

func (d *Driver) Enabled() bool { return d.enabled }

// Step emits one direction-set + pulse pair: the dir pin is settled before
// the rising edge on the step pin.
func (d *Driver) Step(dir int) {
	level := dir < 0
	if d.cfg.InvertDir {
		level = !level
	}
	if level != d.dirLevel {
		d.dir.Set(level)
		d.dirLevel = level
	}
	d.step.Set(true)
	d.step.Set(false)
}
