package i2s

import (
	"fmt"

	"github.com/ardnew/usbmic/pkg"
)

// DefaultSystemClockHz is the RP2040 default system clock.
const DefaultSystemClockHz = 125_000_000

// Config is everything a capture lane needs to run the sequencer.
type Config struct {
	SystemClockHz uint32
	SampleRate    uint32
	Timing        Timing
	Divider       Divider
	Pins          Pins
	Program       Program
	Shift         ShiftConfig
}

// NewConfig validates pins, computes the clock divider and assembles the
// capture program. Every error is a fatal startup error.
func NewConfig(sysHz, sampleRate uint32, pins Pins, timing Timing) (*Config, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}

	prog := CaptureProgram(pins.FrameSync)
	if timing.CyclesPerBit != prog.CyclesPerBit() {
		return nil, fmt.Errorf("%w: timing wants %d cycles per bit, program has %d",
			pkg.ErrInvalidConfig, timing.CyclesPerBit, prog.CyclesPerBit())
	}

	div, err := ComputeDivider(sysHz, sampleRate, timing.Oversampling())
	if err != nil {
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentSequencer, "sequencer clock configured",
		"sysHz", sysHz,
		"sampleRate", sampleRate,
		"oversampling", timing.Oversampling(),
		"divider", div.String(),
		"effectiveRate", div.Rate(),
		"errorPPM", div.ErrorPPM())

	return &Config{
		SystemClockHz: sysHz,
		SampleRate:    sampleRate,
		Timing:        timing,
		Divider:       div,
		Pins:          pins,
		Program:       prog,
		Shift:         DefaultShift,
	}, nil
}

// Lines returns the number of data lines (capture lanes).
func (c *Config) Lines() int {
	return len(c.Pins.Data)
}

// WordsPerSample returns the number of capture words one line produces per
// sample period.
func (c *Config) WordsPerSample() int {
	if c.Shift.PushThreshold == 0 {
		return 0
	}
	return int(c.Timing.BitsPerFrame) / int(c.Shift.PushThreshold)
}
