package i2s

import (
	"fmt"

	"github.com/ardnew/usbmic/pkg"
)

// FracBits is the number of fractional divider bits supported by the hardware.
const FracBits = 8

// Divider range in 16.8 fixed point: 1.0 <= div < 65536.
const (
	minDividerFixed = 1 << FracBits
	maxDividerFixed = 1 << (16 + FracBits)
)

// Timing describes how many sequencer cycles the capture program spends per
// audio sample.
type Timing struct {
	CyclesPerBit uint32 // Sequencer cycles per bit-clock period
	BitsPerFrame uint32 // Bit-clock periods per sample frame (all slots)
}

// DefaultTiming matches [CaptureProgram]: two cycles per bit, two 32-bit slots.
var DefaultTiming = Timing{CyclesPerBit: 2, BitsPerFrame: 64}

// Oversampling returns the number of sequencer cycles per audio sample.
func (t Timing) Oversampling() uint32 {
	return t.CyclesPerBit * t.BitsPerFrame
}

// BitClock returns the bit-clock frequency for the given sample rate.
func (t Timing) BitClock(sampleRate uint32) uint32 {
	return t.BitsPerFrame * sampleRate
}

// Divider is a 16.8 fixed-point sequencer clock divider.
type Divider struct {
	Int  uint16 // Integer part
	Frac uint8  // Fractional part in 1/256 units

	sysHz        uint32
	sampleRate   uint32
	oversampling uint32
}

// ComputeDivider computes the divider that runs the sequencer at
// oversampling × sampleRate from a sysHz system clock, rounded to the
// nearest 1/256. A divider outside [1, 65536) returns [pkg.ErrInvalidDivider].
func ComputeDivider(sysHz, sampleRate, oversampling uint32) (Divider, error) {
	if sysHz == 0 || sampleRate == 0 || oversampling == 0 {
		return Divider{}, fmt.Errorf("%w: sysHz=%d sampleRate=%d oversampling=%d",
			pkg.ErrInvalidParameter, sysHz, sampleRate, oversampling)
	}

	num := uint64(sysHz) << FracBits
	den := uint64(sampleRate) * uint64(oversampling)
	fixed := (num + den/2) / den

	if fixed < minDividerFixed || fixed >= maxDividerFixed {
		return Divider{}, fmt.Errorf("%w: %d.%03d for %d Hz × %d from %d Hz",
			pkg.ErrInvalidDivider, fixed>>FracBits, (fixed&0xFF)*1000>>FracBits,
			sampleRate, oversampling, sysHz)
	}

	return Divider{
		Int:          uint16(fixed >> FracBits),
		Frac:         uint8(fixed),
		sysHz:        sysHz,
		sampleRate:   sampleRate,
		oversampling: oversampling,
	}, nil
}

// Fixed returns the divider as a single 16.8 fixed-point value.
func (d Divider) Fixed() uint32 {
	return uint32(d.Int)<<FracBits | uint32(d.Frac)
}

// Value returns the divider as a floating-point ratio.
func (d Divider) Value() float64 {
	return float64(d.Fixed()) / (1 << FracBits)
}

// SequencerHz returns the effective sequencer clock frequency.
func (d Divider) SequencerHz() float64 {
	if d.Fixed() == 0 {
		return 0
	}
	return float64(d.sysHz) / d.Value()
}

// Rate returns the effective sample rate produced by this divider.
func (d Divider) Rate() float64 {
	if d.oversampling == 0 {
		return 0
	}
	return d.SequencerHz() / float64(d.oversampling)
}

// ErrorPPM returns the sample-rate offset caused by divider rounding, in
// parts per million of the target rate.
func (d Divider) ErrorPPM() float64 {
	if d.sampleRate == 0 {
		return 0
	}
	target := float64(d.sampleRate)
	return (d.Rate() - target) / target * 1e6
}

// String returns the divider as "int+frac/256".
func (d Divider) String() string {
	return fmt.Sprintf("%d+%d/256", d.Int, d.Frac)
}
