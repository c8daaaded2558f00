// Package i2s derives the bitstream sequencer configuration that captures an
// I2S-style serial bus.
//
// The sequencer (an RP2040 PIO state machine, or the software model in
// [github.com/ardnew/usbmic/hal/sim]) drives a shared bit clock through
// side-set, waits for the frame-sync line to align on the left slot, and then
// samples the data line once per bit-clock period. Autopush at a fixed
// 32-bit threshold produces one MSB-aligned capture word per slot.
//
// # Timing
//
// The sequencer must run at [Timing.Oversampling] cycles per audio sample.
// The built-in program spends two cycles per bit over a 64-bit stereo frame,
// so the sequencer clock is 128 × sample rate (the bit clock is 64 × sample
// rate). [ComputeDivider] converts that requirement into a 16.8 fixed-point
// clock divider:
//
//	div, err := i2s.ComputeDivider(125_000_000, 48000, i2s.DefaultTiming.Oversampling())
//	// div.Int = 20, div.Frac = 88, div.ErrorPPM() ≈ +64
//
// Rounding to 1/256 granularity leaves a small fixed sample-rate offset. It is
// reported, never corrected.
//
// # Pins
//
// The bit clock is an output shared by every data line. Frame sync and data
// lines are inputs. Frame sync is generated outside the capture lanes.
package i2s
