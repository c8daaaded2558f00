package frame

import (
	"fmt"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Unused marks a word slot that feeds no host channel.
const Unused = -1

// Line maps the word slots of one data line to host channels.
// Slots[i] is the host channel fed by word i of each sample period, or
// [Unused].
type Line struct {
	Slots []int
}

// Layout maps host channels onto data lines.
type Layout struct {
	Stride int    // Capture words per sample period on every line
	Lines  []Line // One entry per data line, in lane order
}

// DefaultLayout returns the conventional layout for the given channel count:
// channels fill lines left slot first, so a mono stream uses the left slot
// of line 0 and six channels use three stereo lines.
func DefaultLayout(channels, stride int) Layout {
	if stride < 1 {
		stride = 1
	}
	l := Layout{Stride: stride}
	for ch := 0; ch < channels; {
		line := Line{Slots: make([]int, stride)}
		for s := range line.Slots {
			line.Slots[s] = Unused
			if s < 2 && ch < channels {
				line.Slots[s] = ch
				ch++
			}
		}
		l.Lines = append(l.Lines, line)
	}
	return l
}

// LinesFor returns the number of data lines DefaultLayout uses.
func LinesFor(channels int) int {
	return (channels + 1) / 2
}

// Validate checks that the layout covers channels 0..channels-1 exactly once
// with every line the same stride.
func (l Layout) Validate(channels int) error {
	if l.Stride < 1 {
		return fmt.Errorf("%w: stride %d", pkg.ErrInvalidLayout, l.Stride)
	}
	if len(l.Lines) < 1 || len(l.Lines) > i2s.MaxLines {
		return fmt.Errorf("%w: %d lines (want 1-%d)", pkg.ErrInvalidLayout, len(l.Lines), i2s.MaxLines)
	}
	if channels < audio.MinChannels || channels > audio.MaxChannels {
		return fmt.Errorf("%w: %d channels", pkg.ErrInvalidLayout, channels)
	}

	var seen [audio.MaxChannels]bool
	for i, line := range l.Lines {
		if len(line.Slots) != l.Stride {
			return fmt.Errorf("%w: line %d has %d slots, stride is %d",
				pkg.ErrInvalidLayout, i, len(line.Slots), l.Stride)
		}
		for s, ch := range line.Slots {
			if ch == Unused {
				continue
			}
			if ch < 0 || ch >= channels {
				return fmt.Errorf("%w: line %d slot %d maps channel %d of %d",
					pkg.ErrInvalidLayout, i, s, ch, channels)
			}
			if seen[ch] {
				return fmt.Errorf("%w: channel %d mapped twice", pkg.ErrInvalidLayout, ch)
			}
			seen[ch] = true
		}
	}
	for ch := range channels {
		if !seen[ch] {
			return fmt.Errorf("%w: channel %d not mapped", pkg.ErrInvalidLayout, ch)
		}
	}
	return nil
}

// HalfWords returns the double buffer half size that holds exactly one USB
// frame of format on one line.
func (l Layout) HalfWords(format audio.Format) int {
	return format.SamplesPerFrame() * l.Stride
}
