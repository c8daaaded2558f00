// Package audio describes the fixed stream format shared by every stage of
// the capture pipeline.
//
// A [Format] carries the four scalars the USB descriptor provider declares:
// channel count, sample rate, output bit depth and bytes per USB frame.
// They are validated once at startup and never change afterwards.
package audio

import (
	"fmt"

	"github.com/ardnew/usbmic/pkg"
)

// CaptureWordBits is the native width of one raw capture word.
// Samples are always MSB-aligned within this width.
const CaptureWordBits = 32

// FramesPerSecond is the USB full-speed frame rate (one frame per millisecond).
const FramesPerSecond = 1000

// Limits on the channel group.
const (
	MinChannels = 1
	MaxChannels = 6
)

// Supported output bit depths.
const (
	Depth16 = 16
	Depth24 = 24
)

// Format is the stream format of one audio function.
type Format struct {
	Channels      int // Number of interleaved channels (1-6)
	SampleRate    int // Samples per second per channel
	BitDepth      int // Output bits per sample (16 or 24)
	BytesPerFrame int // Payload bytes per 1 ms USB frame
}

// NewFormat returns a Format with BytesPerFrame derived from the other three
// fields. The result still needs [Format.Validate].
func NewFormat(channels, sampleRate, bitDepth int) Format {
	f := Format{
		Channels:   channels,
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
	}
	f.BytesPerFrame = f.FrameBytes()
	return f
}

// BytesPerSample returns the number of payload bytes per sample.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// SamplesPerFrame returns the number of samples per channel in one USB frame.
func (f Format) SamplesPerFrame() int {
	return f.SampleRate / FramesPerSecond
}

// FrameBytes computes channels × bytes-per-sample × samples-per-millisecond.
func (f Format) FrameBytes() int {
	return f.Channels * f.BytesPerSample() * f.SamplesPerFrame()
}

// Shift returns the right shift that extracts BitDepth bits from an
// MSB-aligned capture word.
func (f Format) Shift() uint {
	return uint(CaptureWordBits - f.BitDepth)
}

// Validate checks that the four scalars are mutually consistent.
func (f Format) Validate() error {
	if f.Channels < MinChannels || f.Channels > MaxChannels {
		return fmt.Errorf("%w: %d channels (want %d-%d)",
			pkg.ErrInvalidConfig, f.Channels, MinChannels, MaxChannels)
	}
	if f.BitDepth != Depth16 && f.BitDepth != Depth24 {
		return fmt.Errorf("%w: %d-bit output (want 16 or 24)",
			pkg.ErrInvalidConfig, f.BitDepth)
	}
	if f.SampleRate <= 0 || f.SampleRate%FramesPerSecond != 0 {
		return fmt.Errorf("%w: sample rate %d is not a whole number of samples per frame",
			pkg.ErrInvalidConfig, f.SampleRate)
	}
	if f.BytesPerFrame != f.FrameBytes() {
		return fmt.Errorf("%w: %d bytes per frame, format needs %d",
			pkg.ErrFrameSize, f.BytesPerFrame, f.FrameBytes())
	}
	return nil
}

// String returns a short description such as "6ch/16000Hz/16bit".
func (f Format) String() string {
	return fmt.Sprintf("%dch/%dHz/%dbit", f.Channels, f.SampleRate, f.BitDepth)
}
