package i2s

import (
	"errors"
	"math"
	"testing"

	"github.com/ardnew/usbmic/pkg"
)

func TestDefaultTiming(t *testing.T) {
	if got := DefaultTiming.Oversampling(); got != 128 {
		t.Errorf("Oversampling() = %d, want 128", got)
	}
	if got := DefaultTiming.BitClock(48000); got != 3_072_000 {
		t.Errorf("BitClock(48000) = %d, want 3072000", got)
	}
}

func TestComputeDivider(t *testing.T) {
	tests := []struct {
		name     string
		sysHz    uint32
		rate     uint32
		wantInt  uint16
		wantFrac uint8
	}{
		{"16k exact", 125_000_000, 16000, 61, 9},
		{"48k rounded", 125_000_000, 48000, 20, 88},
		{"8k", 125_000_000, 8000, 122, 18},
		{"48k at 133MHz", 133_000_000, 48000, 21, 166},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			div, err := ComputeDivider(tt.sysHz, tt.rate, DefaultTiming.Oversampling())
			if err != nil {
				t.Fatalf("ComputeDivider() error = %v", err)
			}
			if div.Int != tt.wantInt || div.Frac != tt.wantFrac {
				t.Errorf("divider = %s, want %d+%d/256", div, tt.wantInt, tt.wantFrac)
			}
		})
	}
}

func TestDivider_ExactRate(t *testing.T) {
	div, err := ComputeDivider(125_000_000, 16000, 128)
	if err != nil {
		t.Fatal(err)
	}
	if got := div.Rate(); math.Abs(got-16000) > 1e-6 {
		t.Errorf("Rate() = %f, want 16000", got)
	}
	if got := div.ErrorPPM(); math.Abs(got) > 1e-6 {
		t.Errorf("ErrorPPM() = %f, want 0", got)
	}
	if got := div.SequencerHz(); math.Abs(got-2_048_000) > 1e-3 {
		t.Errorf("SequencerHz() = %f, want 2048000", got)
	}
}

func TestDivider_RoundingOffset(t *testing.T) {
	div, err := ComputeDivider(125_000_000, 48000, 128)
	if err != nil {
		t.Fatal(err)
	}
	// 20+88/256 runs slightly fast: 48003.07 Hz.
	ppm := div.ErrorPPM()
	if ppm < 60 || ppm > 70 {
		t.Errorf("ErrorPPM() = %f, want about +64", ppm)
	}
	// The offset is bounded by half a divider step.
	step := 0.5 / div.Value() / 256 * 1e6
	if math.Abs(ppm) > step {
		t.Errorf("ErrorPPM() = %f exceeds half-step bound %f", ppm, step)
	}
}

func TestComputeDivider_OutOfRange(t *testing.T) {
	tests := []struct {
		name         string
		sysHz        uint32
		rate         uint32
		oversampling uint32
		wantErr      error
	}{
		{"too fast", 125_000_000, 1_000_000, 128, pkg.ErrInvalidDivider},
		{"too slow", 125_000_000, 1, 1, pkg.ErrInvalidDivider},
		{"zero rate", 125_000_000, 0, 128, pkg.ErrInvalidParameter},
		{"zero clock", 0, 48000, 128, pkg.ErrInvalidParameter},
		{"zero oversampling", 125_000_000, 48000, 0, pkg.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeDivider(tt.sysHz, tt.rate, tt.oversampling)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ComputeDivider() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDivider_Fixed(t *testing.T) {
	d := Divider{Int: 61, Frac: 9}
	if got := d.Fixed(); got != 15625 {
		t.Errorf("Fixed() = %d, want 15625", got)
	}
	if got := d.String(); got != "61+9/256" {
		t.Errorf("String() = %q", got)
	}
	if got := (Divider{}).Rate(); got != 0 {
		t.Errorf("zero Divider Rate() = %f, want 0", got)
	}
}
